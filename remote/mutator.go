package remote

import (
	"context"
	"io"
	"log/slog"

	"github.com/toothbrush/site-mirror/site"
)

// Mutator creates and updates single entries.  Failures come back as *site.PageMutateError so the
// orchestrators can skip the node and carry on.
type Mutator struct {
	store  Store
	policy RetryPolicy
	logger *slog.Logger
}

func NewMutator(store Store, policy RetryPolicy, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mutator{store: store, policy: policy, logger: logger}
}

func (m *Mutator) Insert(ctx context.Context, entry site.Entry, target FeedTarget) (site.Entry, error) {
	return m.mutate(ctx, "insert", entry, func(ctx context.Context) (site.Entry, error) {
		return m.store.Insert(ctx, target, entry)
	})
}

func (m *Mutator) Update(ctx context.Context, entry site.Entry) (site.Entry, error) {
	return m.mutate(ctx, "update", entry, func(ctx context.Context) (site.Entry, error) {
		return m.store.Update(ctx, entry)
	})
}

func (m *Mutator) mutate(ctx context.Context, op string, entry site.Entry, fn func(ctx context.Context) (site.Entry, error)) (site.Entry, error) {
	var result site.Entry
	attempts, err := m.policy.do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		if err != nil {
			m.logger.Warn("remote "+op+" failed",
				"id", entry.ID,
				"title", entry.Title,
				"class", Classify(err).String(),
				"error", err,
			)
		}
		return err
	})
	if err != nil {
		return site.Entry{}, &site.PageMutateError{
			Op:      op,
			EntryID: entry.ID,
			Title:   entry.Title,
			Class:   Classify(err),
			Err:     err,
		}
	}
	if attempts > 1 {
		m.logger.Info("remote "+op+" succeeded after retry", "title", entry.Title, "attempts", attempts)
	}
	return result, nil
}
