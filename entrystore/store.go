// Package entrystore indexes the flat entry list of a site and rebuilds its parent/child tree.
//
// Entries are kept in a map keyed by id with a derived child index; there is no object graph with
// back-pointers.  A store is populated once and is read-only afterwards.
package entrystore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/toothbrush/site-mirror/site"
)

// Source is a lazy sequence of entries, such as a *remote.FeedIterator.
type Source interface {
	Next(ctx context.Context) bool
	Entry() site.Entry
	Err() error
}

type Store struct {
	entries  map[string]site.Entry
	children map[string][]string
	roots    []string
	frozen   bool
}

func New() *Store {
	return &Store{
		entries:  map[string]site.Entry{},
		children: map[string][]string{},
	}
}

// Populate consumes src completely, builds the child index and validates the tree.  Any error
// here is fatal for the run.
func (s *Store) Populate(ctx context.Context, src Source) error {
	if s.frozen {
		return fmt.Errorf("entrystore: already populated")
	}
	s.frozen = true

	for src.Next(ctx) {
		e := src.Entry()
		if e.ID == "" {
			return fmt.Errorf("entrystore: received entry '%s' without an id", e.Title)
		}
		if _, ok := s.entries[e.ID]; ok {
			return fmt.Errorf("entrystore: received duplicate id %s", e.ID)
		}
		s.entries[e.ID] = e
	}
	if err := src.Err(); err != nil {
		return fmt.Errorf("entrystore: couldn't read entries: %w", err)
	}

	for id, e := range s.entries {
		if e.IsRoot() {
			s.roots = append(s.roots, id)
			continue
		}
		s.children[e.ParentID] = append(s.children[e.ParentID], id)
	}
	sort.Strings(s.roots)
	for parent := range s.children {
		s.sortChildren(s.children[parent])
	}

	return s.validate()
}

// children ordered by publication time, then id, so layouts are stable between runs.
func (s *Store) sortChildren(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.entries[ids[i]], s.entries[ids[j]]
		if !a.Published.Equal(b.Published) {
			return a.Published.Before(b.Published)
		}
		return a.ID < b.ID
	})
}

func (s *Store) validate() error {
	ids := maps.Keys(s.entries)
	sort.Strings(ids)
	for _, id := range ids {
		e := s.entries[id]
		if e.IsRoot() {
			continue
		}
		if _, ok := s.entries[e.ParentID]; !ok {
			return &site.DanglingParentError{ID: id, ParentID: e.ParentID}
		}
	}

	// every entry has a parent in the store; anything not reachable from a root sits on a cycle.
	seen := map[string]bool{}
	stack := append([]string(nil), s.roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[id] = true
		stack = append(stack, s.children[id]...)
	}
	if len(seen) != len(s.entries) {
		stuck := []string{}
		for _, id := range ids {
			if !seen[id] {
				stuck = append(stuck, id)
			}
		}
		return &site.ParentCycleError{IDs: stuck}
	}
	return nil
}

func (s *Store) Len() int { return len(s.entries) }

func (s *Store) Get(id string) (site.Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Root returns the single parentless entry.
func (s *Store) Root() (site.Entry, error) {
	if len(s.roots) != 1 {
		return site.Entry{}, &site.MissingRootError{Candidates: append([]string{}, s.roots...)}
	}
	return s.entries[s.roots[0]], nil
}

func (s *Store) ChildrenOf(id string) []site.Entry {
	ids := s.children[id]
	out := make([]site.Entry, 0, len(ids))
	for _, child := range ids {
		out = append(out, s.entries[child])
	}
	return out
}

func (s *Store) HasChildren(id string) bool { return len(s.children[id]) > 0 }

// Ancestors lists the entries from the root down to, but excluding, id.
func (s *Store) Ancestors(id string) []site.Entry {
	chain := []site.Entry{}
	e, ok := s.entries[id]
	for ok && !e.IsRoot() {
		e, ok = s.entries[e.ParentID]
		if ok {
			chain = append([]site.Entry{e}, chain...)
		}
	}
	return chain
}

// Walk visits the tree under the root in pre-order.  Returning SkipChildren from fn prunes the
// current subtree; any other error stops the walk.
func (s *Store) Walk(fn func(e site.Entry, depth int) error) error {
	root, err := s.Root()
	if err != nil {
		return err
	}
	return s.walk(root, 0, fn)
}

var SkipChildren = errors.New("entrystore: skip children")

func (s *Store) walk(e site.Entry, depth int, fn func(e site.Entry, depth int) error) error {
	if err := fn(e, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, child := range s.ChildrenOf(e.ID) {
		if err := s.walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// SliceSource feeds a fixed list of entries to Populate.
type SliceSource struct {
	entries []site.Entry
	pos     int
}

func FromEntries(entries ...site.Entry) *SliceSource {
	return &SliceSource{entries: entries}
}

func (s *SliceSource) Next(ctx context.Context) bool {
	if s.pos >= len(s.entries) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource) Entry() site.Entry { return s.entries[s.pos-1] }
func (s *SliceSource) Err() error        { return nil }
