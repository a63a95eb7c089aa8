package services

import (
	"context"

	"github.com/google/go-github/v57/github"
)

// PageFetcher performs one request for one page
type PageFetcher[T any] func(ctx context.Context, page int) ([]T, *github.Response, error)

// PageIterator walks a paginated listing lazily, one page at a time.
// It is finite and cannot be rewound; each page is requested through the retrier,
// so a rate limited page is re-requested rather than restarting the listing.
type PageIterator[T any] struct {
	fetch   PageFetcher[T]
	retrier *Retrier
	query   QueryContext

	page    int
	pages   int
	buf     []T
	pos     int
	current T
	done    bool
	err     error
}

func NewPageIterator[T any](retrier *Retrier, query QueryContext, fetch PageFetcher[T]) *PageIterator[T] {
	return &PageIterator[T]{
		fetch:   fetch,
		retrier: retrier,
		query:   query,
		page:    1,
	}
}

// Next advances to the next item, fetching the next page when needed
func (it *PageIterator[T]) Next(ctx context.Context) bool {
	for it.pos >= len(it.buf) {
		if it.done || it.err != nil {
			return false
		}
		it.loadPage(ctx)
	}

	it.current = it.buf[it.pos]
	it.pos++
	return true
}

// Value returns the item Next moved to
func (it *PageIterator[T]) Value() T {
	return it.current
}

// Err returns the error that ended the iteration, if any
func (it *PageIterator[T]) Err() error {
	return it.err
}

// Stop ends the iteration; no further items are returned and no further pages requested
func (it *PageIterator[T]) Stop() {
	it.done = true
	it.buf = nil
	it.pos = 0
}

// Pages returns how many pages were fetched so far
func (it *PageIterator[T]) Pages() int {
	return it.pages
}

func (it *PageIterator[T]) loadPage(ctx context.Context) {
	var items []T
	var resp *github.Response

	err := it.retrier.Do(ctx, it.query.WithPage(it.page), func(ctx context.Context) AttemptResult {
		var err error
		items, resp, err = it.fetch(ctx, it.page)
		return ClassifyResponse(resp, err)
	})
	if err != nil {
		it.err = err
		return
	}

	it.pages++
	it.buf = items
	it.pos = 0

	if len(items) == 0 || resp == nil || resp.NextPage == 0 {
		it.done = true
		return
	}
	it.page = resp.NextPage
}

// Collect drains the iterator into a slice
func Collect[T any](ctx context.Context, it *PageIterator[T]) ([]T, error) {
	var all []T
	for it.Next(ctx) {
		all = append(all, it.Value())
	}
	return all, it.Err()
}
