package site

import (
	"errors"
	"fmt"
	"strings"
)

type FailureClass int

const (
	// Transient failures (network, IO, server overload) may be retried.
	Transient FailureClass = iota
	// Rejected failures (validation, permission) are never retried.
	Rejected
)

func (c FailureClass) String() string {
	if c == Transient {
		return "transient"
	}
	return "rejected"
}

// FeedFetchError aborts a site run: a partial entry set would corrupt the tree.
type FeedFetchError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *FeedFetchError) Error() string {
	return fmt.Sprintf("feed fetch failed for %s after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *FeedFetchError) Unwrap() error { return e.Err }

type DanglingParentError struct {
	ID       string
	ParentID string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("entry %s references missing parent %s", e.ID, e.ParentID)
}

type MissingRootError struct {
	// Candidates holds every parentless entry; empty when there was none.
	Candidates []string
}

func (e *MissingRootError) Error() string {
	if len(e.Candidates) == 0 {
		return "no root entry found"
	}
	return fmt.Sprintf("expected exactly one root entry, found %d: %s",
		len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// ParentCycleError names entries whose parent chain loops instead of reaching the root.
type ParentCycleError struct {
	IDs []string
}

func (e *ParentCycleError) Error() string {
	return fmt.Sprintf("entries unreachable from root (parent cycle): %s", strings.Join(e.IDs, ", "))
}

type PageWriteError struct {
	Path string
	Err  error
}

func (e *PageWriteError) Error() string {
	return fmt.Sprintf("couldn't write %s: %v", e.Path, e.Err)
}

func (e *PageWriteError) Unwrap() error { return e.Err }

type PageMutateError struct {
	Op      string // "insert" or "update"
	EntryID string
	Title   string
	Class   FailureClass
	Err     error
}

func (e *PageMutateError) Error() string {
	name := e.EntryID
	if name == "" {
		name = fmt.Sprintf("'%s'", e.Title)
	}
	return fmt.Sprintf("%s of %s %s: %v", e.Op, name, e.Class, e.Err)
}

func (e *PageMutateError) Unwrap() error { return e.Err }

// LinkResolutionWarning records a reference that was left untouched.  It is reported, never
// returned as an error.
type LinkResolutionWarning struct {
	Source string
	Ref    string
	Reason string
}

func (w LinkResolutionWarning) String() string {
	return fmt.Sprintf("%s: %s (%q)", w.Source, w.Reason, w.Ref)
}

// IsFatal reports whether err must terminate the run for its site.
func IsFatal(err error) bool {
	var (
		feed     *FeedFetchError
		dangling *DanglingParentError
		root     *MissingRootError
		cycle    *ParentCycleError
	)
	return errors.As(err, &feed) || errors.As(err, &dangling) ||
		errors.As(err, &root) || errors.As(err, &cycle)
}
