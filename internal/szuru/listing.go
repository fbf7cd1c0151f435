package szuru

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"szurutools/internal/paging"
)

const tagListFields = "names,category,version,usages,implications"

func (c *Client) listTags(ctx context.Context, query string) ([]Tag, error) {
	return paging.Collect(ctx, paging.PageSize, func(ctx context.Context, offset, limit int) ([]Tag, error) {
		params := url.Values{}
		if query != "" {
			params.Set("query", query)
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("fields", tagListFields)
		var page tagPage
		if err := c.doJSON(ctx, http.MethodGet, "api/tags/", params, nil, &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	})
}

// TagsWithImplications returns the primary name of every tag that declares at
// least one implication, in listing order.
func (c *Client) TagsWithImplications(ctx context.Context) ([]string, error) {
	all, err := c.listTags(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, tag := range all {
		name := tag.PrimaryName()
		if name == "" || len(tag.Implications) == 0 {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// UnusedTags returns every tag with zero usages.
func (c *Client) UnusedTags(ctx context.Context) ([]Tag, error) {
	all, err := c.listTags(ctx, "usages:0")
	if err != nil {
		return nil, err
	}
	unused := make([]Tag, 0, len(all))
	for _, tag := range all {
		if tag.Usages == 0 {
			unused = append(unused, tag)
		}
	}
	return unused, nil
}
