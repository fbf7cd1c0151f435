// Package paging walks offset/limit paginated listings.
//
// The board caps every listing at 100 results per request. A listing is
// exhausted when a page comes back empty or shorter than the requested size;
// no total count is consulted, so results added mid-walk may or may not be
// seen.
package paging

import (
	"context"
	"fmt"
)

// PageSize is the largest page the board serves.
const PageSize = 100

// FetchFunc loads one page starting at offset.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Collect requests consecutive pages of size limit until a page is empty or
// short, returning the concatenated results. A limit <= 0 selects PageSize.
// The first failing page aborts the walk and partial results are discarded.
func Collect[T any](ctx context.Context, limit int, fetch FetchFunc[T]) ([]T, error) {
	if limit <= 0 {
		limit = PageSize
	}
	var all []T
	err := Walk(ctx, limit, fetch, func(page []T) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Walk is Collect without accumulation: visit receives each non-empty page in
// order and may stop the walk by returning an error.
func Walk[T any](ctx context.Context, limit int, fetch FetchFunc[T], visit func([]T) error) error {
	if limit <= 0 {
		limit = PageSize
	}
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, offset, limit)
		if err != nil {
			return fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			return nil
		}
		if err := visit(page); err != nil {
			return err
		}
		if len(page) < limit {
			return nil
		}
		offset += limit
	}
}
