package implications

import (
	"context"

	"szurutools/internal/szuru"
)

// ImplicationProvider resolves the tags a tag implies.
type ImplicationProvider interface {
	Implications(ctx context.Context, tag string) ([]string, error)
}

// PostStore searches and updates posts.
type PostStore interface {
	SearchPosts(ctx context.Context, query string, limit, offset int) (*szuru.PostPage, error)
	UpdatePostTags(ctx context.Context, id int, tags []string, version int) (*szuru.Post, error)
}

// TagCatalog enumerates and removes tags.
type TagCatalog interface {
	TagsWithImplications(ctx context.Context) ([]string, error)
	UnusedTags(ctx context.Context) ([]szuru.Tag, error)
	DeleteTag(ctx context.Context, name string, version int) error
}

// Board is everything a propagation or sweep run needs. *szuru.Client
// satisfies it.
type Board interface {
	ImplicationProvider
	PostStore
	TagCatalog
}
