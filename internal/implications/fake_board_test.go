package implications_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"szurutools/internal/szuru"
)

type updateCall struct {
	ID      int
	Tags    []string
	Version int
}

// fakeBoard is an in-memory board keyed by post id.
type fakeBoard struct {
	mu           sync.Mutex
	implications map[string][]string
	implErr      map[string]error
	posts        []szuru.Post
	searchErr    map[string]error
	updateErr    map[int]error
	catalog      []string
	catalogErr   error
	unused       []szuru.Tag
	unusedErr    error
	deleteErr    map[string]error

	updates  []updateCall
	deletes  []string
	searches []string
}

func post(id, version int, names ...string) szuru.Post {
	p := szuru.Post{ID: id, Version: version}
	for _, name := range names {
		p.Tags = append(p.Tags, szuru.TagRef{Names: []string{name}})
	}
	return p
}

func (f *fakeBoard) Implications(_ context.Context, tag string) ([]string, error) {
	if err := f.implErr[tag]; err != nil {
		return nil, err
	}
	return f.implications[tag], nil
}

func (f *fakeBoard) SearchPosts(_ context.Context, query string, limit, offset int) (*szuru.PostPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, fmt.Sprintf("%s@%d", query, offset))
	if err := f.searchErr[query]; err != nil {
		return nil, err
	}
	var matched []szuru.Post
	tag := query[len("tag:"):]
	for _, p := range f.posts {
		for _, name := range p.TagNames() {
			if name == tag {
				matched = append(matched, p)
				break
			}
		}
	}
	page := &szuru.PostPage{Query: query, Offset: offset, Limit: limit, Total: len(matched)}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Results = matched[offset:end]
	}
	return page, nil
}

func (f *fakeBoard) UpdatePostTags(_ context.Context, id int, tags []string, version int) (*szuru.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return nil, err
	}
	for i := range f.posts {
		if f.posts[i].ID != id {
			continue
		}
		if f.posts[i].Version != version {
			return nil, errors.New("version mismatch")
		}
		f.updates = append(f.updates, updateCall{ID: id, Tags: append([]string(nil), tags...), Version: version})
		updated := post(id, version+1, tags...)
		f.posts[i] = updated
		return &updated, nil
	}
	return nil, errors.New("post not found")
}

func (f *fakeBoard) TagsWithImplications(context.Context) ([]string, error) {
	return f.catalog, f.catalogErr
}

func (f *fakeBoard) UnusedTags(context.Context) ([]szuru.Tag, error) {
	return f.unused, f.unusedErr
}

func (f *fakeBoard) DeleteTag(_ context.Context, name string, version int) error {
	if err := f.deleteErr[name]; err != nil {
		return err
	}
	f.deletes = append(f.deletes, fmt.Sprintf("%s@%d", name, version))
	return nil
}
