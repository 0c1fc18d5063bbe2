// Package ancestry implements C3, the ancestry tracer: walking a source
// path backward through history to find where (and whether) it originated
// from a path inside the replay's base, crossing svn copy-from edges.
package ancestry

import (
	"strings"

	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// Step is one hop of an ancestor chain (§3): "at Revision, Path was
// created/replaced with copy-from CopyFromPath@CopyFromRev".
type Step struct {
	Path        string
	Revision    int
	CopyFromPath string
	CopyFromRev  int
}

// LogClient is the subset of *svnclient.Client the tracer needs.
type LogClient interface {
	Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error)
}

// transition classifies one changed-path action the way §9's "ancestry
// walk as a state machine" note describes: Modify advances the query
// revision, Add/Replace-with-copyfrom extend the chain, Delete and
// non-copy Add/Replace terminate it.
type transition int

const (
	transModify transition = iota
	transExtend
	transTerminate
)

func classify(cp svnclient.ChangedPath) (transition, error) {
	switch cp.Action {
	case svnclient.ActionModify:
		return transModify, nil
	case svnclient.ActionAdd, svnclient.ActionReplace:
		if cp.HasCopyFrom() {
			return transExtend, nil
		}
		return transTerminate, nil
	case svnclient.ActionDelete:
		return transTerminate, nil
	default:
		return transTerminate, &errs.UnsupportedActionError{Action: string(cp.Action), Path: cp.Path, Rev: 0}
	}
}

// FindAncestors returns the ancestor chain for (startPath, startRev),
// newest-first (§3). If stopBase is non-empty, the walk stops as soon as
// the current path is a descendant of stopBase (having advanced past the
// first iteration, §4.3 step 2); if the walk instead terminates on a
// delete or non-copy add before reaching stopBase, an empty chain is
// returned ("no ancestry"). If stopBase is empty, whatever chain was
// found (possibly empty) is returned.
func FindAncestors(client LogClient, reposRoot, startPath string, startRev int, stopBase string) ([]Step, error) {
	curPath := startPath
	curRev := startRev
	var chain []Step
	first := true

	for {
		if stopBase != "" && !first && isDescendantOrEqual(curPath, stopBase) {
			return chain, nil
		}
		first = false

		url := reposRoot + curPath
		entries, err := client.Log(url, curRev, 0, svnclient.LogOptions{
			Limit: 1, StopOnCopy: true, GetPaths: true,
		})
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			break
		}
		entry := entries[0]

		selected, ok := selectDeepestPrefix(entry.ChangedPaths, curPath)
		if !ok {
			break
		}

		tr, err := classify(selected)
		if err != nil {
			return nil, err
		}
		switch tr {
		case transModify:
			curRev = entry.Revision - 1
			continue
		case transTerminate:
			if stopBase != "" {
				return nil, nil
			}
			return chain, nil
		case transExtend:
			suffix := strings.TrimPrefix(curPath, selected.Path)
			copyFromPath := selected.CopyFromPath + suffix
			chain = append(chain, Step{
				Path:         curPath,
				Revision:     entry.Revision,
				CopyFromPath: copyFromPath,
				CopyFromRev:  selected.CopyFromRev,
			})
			curPath = copyFromPath
			curRev = selected.CopyFromRev
			continue
		}
	}

	if stopBase != "" {
		// Walk ran out of history without ever reaching stopBase or
		// hitting a terminal change: treat as no ancestry, consistent
		// with the "delete/non-copy add" case.
		return nil, nil
	}
	return chain, nil
}

// selectDeepestPrefix picks, among changedPaths, the one whose Path is a
// prefix of (or equal to) queryPath, preferring the deepest (longest)
// match, per §4.3 step 3.
func selectDeepestPrefix(changedPaths []svnclient.ChangedPath, queryPath string) (svnclient.ChangedPath, bool) {
	var best svnclient.ChangedPath
	found := false
	for _, cp := range changedPaths {
		if cp.Path == queryPath || strings.HasPrefix(queryPath, cp.Path+"/") {
			if !found || len(cp.Path) > len(best.Path) {
				best = cp
				found = true
			}
		}
	}
	return best, found
}

func isDescendantOrEqual(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}

// InAncestors answers the tie-break the Open Question in spec.md §9
// flags: whether candidate is actually one of the steps of chain. Per
// DESIGN.md's decision, a match requires BOTH the copy-from path and the
// copy-from revision of some step to equal candidatePath and candidateRev
// — not loose path-prefix matching — so that two ancestors
// sharing a path prefix at different revisions are never confused.
func InAncestors(chain []Step, candidatePath string, candidateRev int) bool {
	for _, s := range chain {
		if s.CopyFromPath == candidatePath && s.CopyFromRev == candidateRev {
			return true
		}
	}
	return false
}

// Deepest returns the last (oldest, deepest) step of chain, or false if
// chain is empty.
func Deepest(chain []Step) (Step, bool) {
	if len(chain) == 0 {
		return Step{}, false
	}
	return chain[len(chain)-1], true
}
