package replay

import (
	"sort"
	"strings"

	"github.com/svn2svn/svn2svn/internal/ancestry"
	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/planner"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// Ops is the subset of *svnclient.Client the processor needs beyond what
// the planner already requires.
type Ops interface {
	planner.Ops
	Update(path string, nonRecursive bool) error
	GetKind(reposRoot, path string, rev int, action svnclient.Action, changedPathsInRev []svnclient.ChangedPath) (svnclient.Kind, error)
}

// Processor is C6: it turns one source LogEntry into working copy
// mutations, delegating adds-with-copyfrom to the planner (C5).
type Processor struct {
	Cfg     Config
	Client  Ops
	Planner *planner.Planner
}

// NewProcessor builds a Processor sharing client and planner with the
// rest of the run.
func NewProcessor(cfg Config, client Ops, p *planner.Planner) *Processor {
	return &Processor{Cfg: cfg, Client: client, Planner: p}
}

// ProcessEntry applies every changed path of entry that falls within
// Cfg.SourceBase, in depth-first (ascending-path) order (§4.6). ancestors
// is the replay's own precomputed ancestor chain, used by the planner's
// in_ancestors filter. commitPaths accumulates working-copy-relative path
// offsets touched by this revision, for the commit driver to narrow the
// final `svn commit` invocation.
func (pr *Processor) ProcessEntry(entry svnclient.LogEntry, ancestors []ancestry.Step, commitPaths *[]string) error {
	changed := inScope(entry.ChangedPaths, pr.Cfg.SourceBase)
	deferred := &planner.Deferred{}

	for i, cp := range changed {
		if cp.Kind == svnclient.KindNone {
			kind, err := pr.Client.GetKind(pr.Cfg.SourceRoot, cp.Path, entry.Revision, cp.Action, entry.ChangedPaths)
			if err != nil {
				return err
			}
			cp.Kind = kind
		}
		offset := stripBase(cp.Path, pr.Cfg.SourceBase)
		*commitPaths = append(*commitPaths, offset)

		action := cp.Action
		if action == svnclient.ActionReplace {
			if err := pr.replaceToAdd(offset, cp); err != nil {
				return err
			}
			action = svnclient.ActionAdd
		}

		switch action {
		case svnclient.ActionAdd:
			if err := pr.handleAdd(offset, entry.Revision, cp, changed, i, ancestors, deferred); err != nil {
				return err
			}
		case svnclient.ActionDelete:
			if err := pr.handleDelete(offset, cp); err != nil {
				return err
			}
		case svnclient.ActionModify:
			if err := pr.handleModify(offset, entry.Revision, cp); err != nil {
				return err
			}
		default:
			return &errs.UnsupportedActionError{Action: string(cp.Action), Path: cp.Path, Rev: entry.Revision}
		}
	}

	return pr.flushDeferred(deferred, entry.Revision)
}

// inScope keeps only the changed paths that are descendants of (or equal
// to) base, discarding entries belonging to sibling branches (§4.6 step
// 1), and returns them in ascending path order (already the order the
// client parses log output in, but re-sorted defensively since this
// slice may have been filtered).
func inScope(paths []svnclient.ChangedPath, base string) []svnclient.ChangedPath {
	base = strings.TrimSuffix(base, "/")
	var out []svnclient.ChangedPath
	for _, cp := range paths {
		if cp.Path == base || strings.HasPrefix(cp.Path, base+"/") {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// replaceToAdd performs the implicit delete half of an "R" action (§4.6
// step 4): bring the directory's content up to date before removing it,
// so the subsequent add/copy doesn't race stale working-copy state. The
// caller then reprocesses the same changed path as a plain "A".
func (pr *Processor) replaceToAdd(offset string, cp svnclient.ChangedPath) error {
	target := pr.wcPath(offset)
	if cp.Kind == svnclient.KindDir {
		if err := pr.Client.Update(target, false); err != nil {
			return err
		}
	}
	return pr.Client.Remove(target, true)
}

func (pr *Processor) handleAdd(offset string, rev int, cp svnclient.ChangedPath, changed []svnclient.ChangedPath, idx int, ancestors []ancestry.Step, deferred *planner.Deferred) error {
	if cp.HasCopyFrom() {
		skip := descendantOffsets(changed, idx, pr.Cfg.SourceBase)
		return pr.Planner.PlanAdd(offset, rev, ancestors, nil, cp.Kind == svnclient.KindDir, skip, deferred)
	}

	target := pr.wcPath(offset)
	if err := ensureParentDir(pr.Client, target); err != nil {
		return err
	}
	if cp.Kind == svnclient.KindDir {
		deferred.Dirs = append(deferred.Dirs, offset)
		if err := pr.Client.Mkdir(target); err != nil {
			return err
		}
	} else {
		srcURL := joinRepoPath(pr.Cfg.SourceRoot, cp.Path)
		if err := pr.Client.Export(srcURL, svnclient.Rev(rev), target, true, true); err != nil {
			return err
		}
		if err := pr.Client.Add(target, true); err != nil {
			return err
		}
	}
	if pr.Cfg.SyncProperties {
		return pr.syncProperties(offset, rev, target)
	}
	return nil
}

func (pr *Processor) handleDelete(offset string, cp svnclient.ChangedPath) error {
	target := pr.wcPath(offset)
	if cp.Kind == svnclient.KindDir {
		if err := pr.Client.Update(target, false); err != nil {
			return err
		}
	}
	return pr.Client.Remove(target, true)
}

func (pr *Processor) handleModify(offset string, rev int, cp svnclient.ChangedPath) error {
	target := pr.wcPath(offset)
	if cp.Kind == svnclient.KindDir {
		if err := pr.Client.Update(target, true); err != nil {
			return err
		}
		if pr.Cfg.SyncProperties {
			return pr.syncProperties(offset, rev, target)
		}
		return nil
	}
	srcURL := joinRepoPath(pr.Cfg.SourceRoot, cp.Path)
	if err := pr.Client.Export(srcURL, svnclient.Rev(rev), target, true, true); err != nil {
		return err
	}
	if pr.Cfg.SyncProperties {
		return pr.syncProperties(offset, rev, target)
	}
	return nil
}

// flushDeferred exports the final content of every directory queued for
// a post-pass export (§4.6 step 5), once all of this revision's
// structural changes have been applied.
func (pr *Processor) flushDeferred(deferred *planner.Deferred, rev int) error {
	for _, offset := range deferred.Dirs {
		srcURL := joinRepoPath(pr.Cfg.SourceRoot, joinRepoPath(pr.Cfg.SourceBase, offset))
		target := pr.wcPath(offset)
		if err := pr.Client.Export(srcURL, svnclient.Rev(rev), target, true, false); err != nil {
			return err
		}
	}
	return nil
}

// descendantOffsets collects the path offsets of every other entry in
// changed whose path is a strict descendant of changed[idx].Path — these
// will get their own ProcessEntry iteration later in this same revision
// and must not be pre-copied out of order by the planner's recursion
// (§4.6 step 4).
func descendantOffsets(changed []svnclient.ChangedPath, idx int, base string) map[string]bool {
	out := map[string]bool{}
	parent := changed[idx].Path
	for j, cp := range changed {
		if j == idx {
			continue
		}
		if strings.HasPrefix(cp.Path, parent+"/") {
			out[stripBase(cp.Path, base)] = true
		}
	}
	return out
}

func (pr *Processor) syncProperties(offset string, rev int, target string) error {
	srcURL := joinRepoPath(pr.Cfg.SourceRoot, joinRepoPath(pr.Cfg.SourceBase, offset))
	srcProps, err := pr.Client.PropgetAll(srcURL, svnclient.Rev(rev))
	if err != nil {
		return err
	}
	tgtProps, err := pr.Client.PropgetAll(target, "")
	if err != nil {
		tgtProps = map[string]string{}
	}
	delete(srcProps, "svn:mergeinfo")
	delete(tgtProps, "svn:mergeinfo")
	if !pr.Cfg.CarryExternals {
		delete(srcProps, "svn:externals")
	}
	for name := range tgtProps {
		if _, stillThere := srcProps[name]; !stillThere {
			if err := pr.Client.Propdel(name, target); err != nil {
				return err
			}
		}
	}
	for name, val := range srcProps {
		if tgtProps[name] == val {
			continue
		}
		if err := pr.Client.Propset(name, val, target); err != nil {
			return err
		}
	}
	return nil
}

func (pr *Processor) wcPath(offset string) string {
	return wcJoin(pr.Cfg.WCPath, offset)
}
