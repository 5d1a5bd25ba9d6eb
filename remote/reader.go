package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/toothbrush/site-mirror/site"
)

// Reader turns a feed into a lazy sequence of entries, following continuation tokens page by page.
type Reader struct {
	store  Store
	policy RetryPolicy
	logger *slog.Logger
}

func NewReader(store Store, policy RetryPolicy, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{store: store, policy: policy, logger: logger}
}

// Read starts a fresh traversal of target.  The returned iterator is not restartable.
func (r *Reader) Read(target FeedTarget, pageSize int) *FeedIterator {
	return &FeedIterator{reader: r, target: target, pageSize: pageSize}
}

// ReadAll drains a fresh traversal of target.
func (r *Reader) ReadAll(ctx context.Context, target FeedTarget, pageSize int) ([]site.Entry, error) {
	it := r.Read(target, pageSize)
	entries := []site.Entry{}
	for it.Next(ctx) {
		entries = append(entries, it.Entry())
	}
	return entries, it.Err()
}

// FeedIterator yields entries in the order the remote returns them.  Usage follows bufio.Scanner:
//
//	for it.Next(ctx) {
//		e := it.Entry()
//	}
//	if err := it.Err(); err != nil { ... }
type FeedIterator struct {
	reader   *Reader
	target   FeedTarget
	pageSize int

	buf     []site.Entry
	current site.Entry
	token   string
	started bool
	done    bool
	err     error
	pages   int
}

func (it *FeedIterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return false
		}
		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}
		it.fetch(ctx)
	}
	it.current, it.buf = it.buf[0], it.buf[1:]
	return true
}

func (it *FeedIterator) Entry() site.Entry { return it.current }

// Err returns the error that ended the traversal early; a *site.FeedFetchError when a page could
// not be fetched.
func (it *FeedIterator) Err() error { return it.err }

func (it *FeedIterator) fetch(ctx context.Context) {
	var page FeedPage
	token := it.token
	attempts, err := it.reader.policy.do(ctx, func(ctx context.Context) error {
		var err error
		page, err = it.reader.store.FetchFeedPage(ctx, it.target, token, it.pageSize)
		if err != nil {
			it.reader.logger.Warn("feed page fetch failed",
				"target", it.target.String(),
				"token", token,
				"error", err,
			)
		}
		return err
	})
	if err != nil {
		it.err = &site.FeedFetchError{Target: it.target.String(), Attempts: attempts, Err: err}
		return
	}

	it.pages++
	it.reader.logger.Debug("fetched feed page",
		"target", it.target.String(),
		"page", it.pages,
		"entries", len(page.Entries),
	)

	if page.Next != "" && it.started && page.Next == token {
		it.err = &site.FeedFetchError{
			Target:   it.target.String(),
			Attempts: attempts,
			Err:      fmt.Errorf("remote: continuation token %q did not advance", token),
		}
		return
	}
	it.started = true
	it.buf = page.Entries
	it.token = page.Next
	it.done = page.Next == ""
}
