package entrystore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/site-mirror/entrystore"
	"github.com/toothbrush/site-mirror/site"
)

func at(sec int) time.Time { return time.Date(2024, 3, 1, 0, 0, sec, 0, time.UTC) }

func populate(t *testing.T, entries ...site.Entry) (*entrystore.Store, error) {
	t.Helper()
	s := entrystore.New()
	return s, s.Populate(context.Background(), entrystore.FromEntries(entries...))
}

func TestRootAndChildren(t *testing.T) {
	s, err := populate(t,
		site.Entry{ID: "post1", ParentID: "blog", Title: "Post1", Published: at(4)},
		site.Entry{ID: "blog", ParentID: "home", Title: "Blog", Published: at(3)},
		site.Entry{ID: "about", ParentID: "home", Title: "About", Published: at(2)},
		site.Entry{ID: "home", Title: "Home", Published: at(1)},
	)
	require.NoError(t, err)

	root, err := s.Root()
	require.NoError(t, err)
	assert.Equal(t, "home", root.ID)

	children := s.ChildrenOf("home")
	require.Len(t, children, 2)
	assert.Equal(t, "about", children[0].ID)
	assert.Equal(t, "blog", children[1].ID)
	assert.True(t, s.HasChildren("blog"))
	assert.False(t, s.HasChildren("about"))

	ancestors := s.Ancestors("post1")
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Home", ancestors[0].Title)
	assert.Equal(t, "Blog", ancestors[1].Title)
}

func TestChildrenTieBreakOnID(t *testing.T) {
	s, err := populate(t,
		site.Entry{ID: "home"},
		site.Entry{ID: "c", ParentID: "home", Published: at(1)},
		site.Entry{ID: "a", ParentID: "home", Published: at(1)},
		site.Entry{ID: "b", ParentID: "home", Published: at(0)},
	)
	require.NoError(t, err)

	ids := []string{}
	for _, c := range s.ChildrenOf("home") {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestWalkVisitsEveryEntryOnce(t *testing.T) {
	entries := []site.Entry{{ID: "root"}}
	// a wide, deep tree: every node i > 0 hangs off node (i-1)/3.
	for i := 1; i < 60; i++ {
		parent := "root"
		if p := (i - 1) / 3; p > 0 {
			parent = fmt.Sprintf("n%d", p)
		}
		entries = append(entries, site.Entry{ID: fmt.Sprintf("n%d", i), ParentID: parent, Published: at(i)})
	}
	s, err := populate(t, entries...)
	require.NoError(t, err)

	visits := map[string]int{}
	require.NoError(t, s.Walk(func(e site.Entry, depth int) error {
		visits[e.ID]++
		return nil
	}))
	assert.Len(t, visits, len(entries))
	for id, n := range visits {
		assert.Equal(t, 1, n, id)
	}
}

func TestWalkSkipChildren(t *testing.T) {
	s, err := populate(t,
		site.Entry{ID: "home"},
		site.Entry{ID: "blog", ParentID: "home"},
		site.Entry{ID: "post", ParentID: "blog"},
	)
	require.NoError(t, err)

	visited := []string{}
	require.NoError(t, s.Walk(func(e site.Entry, depth int) error {
		visited = append(visited, e.ID)
		if e.ID == "blog" {
			return entrystore.SkipChildren
		}
		return nil
	}))
	assert.Equal(t, []string{"home", "blog"}, visited)
}

func TestDanglingParent(t *testing.T) {
	_, err := populate(t,
		site.Entry{ID: "home"},
		site.Entry{ID: "orphan", ParentID: "gone"},
	)

	var dangling *site.DanglingParentError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "orphan", dangling.ID)
	assert.Equal(t, "gone", dangling.ParentID)
	assert.Contains(t, err.Error(), "gone")
	assert.True(t, site.IsFatal(err))
}

func TestMissingRoot(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		s, err := populate(t)
		require.NoError(t, err)
		_, err = s.Root()

		var missing *site.MissingRootError
		require.ErrorAs(t, err, &missing)
		assert.Empty(t, missing.Candidates)
	})

	t.Run("two", func(t *testing.T) {
		s, err := populate(t, site.Entry{ID: "a"}, site.Entry{ID: "b"})
		require.NoError(t, err)
		_, err = s.Root()

		var missing *site.MissingRootError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"a", "b"}, missing.Candidates)
		assert.ErrorAs(t, s.Walk(func(site.Entry, int) error { return nil }), &missing)
	})
}

func TestParentCycle(t *testing.T) {
	_, err := populate(t,
		site.Entry{ID: "home"},
		site.Entry{ID: "x", ParentID: "y"},
		site.Entry{ID: "y", ParentID: "x"},
	)

	var cycle *site.ParentCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"x", "y"}, cycle.IDs)
}

func TestDuplicateIDAndFreeze(t *testing.T) {
	_, err := populate(t, site.Entry{ID: "a"}, site.Entry{ID: "a"})
	assert.ErrorContains(t, err, "duplicate id a")

	s, err := populate(t, site.Entry{ID: "a"})
	require.NoError(t, err)
	assert.Error(t, s.Populate(context.Background(), entrystore.FromEntries(site.Entry{ID: "b"})))
	_, ok := s.Get("b")
	assert.False(t, ok)
}
