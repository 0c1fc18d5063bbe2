// Package planner implements C5, the add/copy planner: for each "A"
// (added) change in a source revision, decide whether to reproduce it in
// the target as a native svn copy (when a mapped ancestor exists) or as a
// plain export+add (when it doesn't), per §4.5.
package planner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/svn2svn/svn2svn/internal/ancestry"
	"github.com/svn2svn/svn2svn/internal/log"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// Ops is the subset of *svnclient.Client the planner needs. Kept as an
// interface so tests can substitute a fake, the way surgeon/hgclient.go
// hides its subprocess client behind a small interface.
type Ops interface {
	Info(urlOrWC string, rev svnclient.RevSpec) (*svnclient.Info, error)
	List(urlOrWC string, rev svnclient.RevSpec, recursive, tolerant bool) ([]svnclient.Dirent, error)
	Export(url string, rev svnclient.RevSpec, dest string, force, nonRecursive bool) error
	Add(path string, parents bool) error
	Copy(srcURL string, srcRev int, dest string) error
	Remove(path string, force bool) error
	Mkdir(path string) error
	PropgetAll(pathOrURL string, rev svnclient.RevSpec) (map[string]string, error)
	Propset(prop, value, path string) error
	Propdel(prop, path string) error
}

// AncestryTracer is the subset of the ancestry package the planner needs,
// abstracted for testability.
type AncestryTracer interface {
	FindAncestors(reposRoot, startPath string, startRev int, stopBase string) ([]ancestry.Step, error)
}

// RevMap is the subset of *revmap.Map the planner needs.
type RevMap interface {
	Get(s int) (int, bool)
}

// Config is the immutable replay configuration relevant to planning
// (a narrowed view of the engine-wide ReplayConfig defined by
// internal/replay, per the §9 redesign note on eliminating mutable
// globals).
type Config struct {
	SourceRoot     string
	SourceBase     string
	TargetRoot     string
	TargetBase     string
	WCPath         string // on-disk root of the target working copy
	SyncProperties bool
	CarryExternals bool // SPEC_FULL: gate svn:externals carry-through
	SkipAncestry   bool // SPEC_FULL: escape hatch, treat every add as export+add
}

// CopyFromRef names a copy-from edge already applied by a parent's plan,
// used to skip a redundant copy when recursing into a just-copied
// directory (§4.5 tie-break).
type CopyFromRef struct {
	Path string
	Rev  int
}

// Planner holds the dependencies PlanAdd needs across one call tree.
type Planner struct {
	Cfg     Config
	Client  Ops
	Tracer  AncestryTracer
	RevMap  RevMap
	DirList func(string) ([]svnclient.Dirent, error) // local WC listing, overridable in tests
}

// New builds a Planner backed by a real *svnclient.Client.
func New(cfg Config, client Ops, tracer AncestryTracer, revMap RevMap) *Planner {
	p := &Planner{Cfg: cfg, Client: client, Tracer: tracer, RevMap: revMap}
	p.DirList = p.localDirList
	return p
}

// Deferred collects directories whose content must be export --force'd
// after the whole revision's structural changes are applied (§4.5 step 3,
// §4.6 step 5), so child content exactly matches the source at sourceRev.
type Deferred struct {
	Dirs []string
}

// PlanAdd reproduces one "A" (added) change for pathOffset at sourceRev,
// choosing between copy (with optional replace) and export+add (§4.5).
func (p *Planner) PlanAdd(
	pathOffset string,
	sourceRev int,
	sourceAncestors []ancestry.Step,
	parentCopyFrom *CopyFromRef,
	isDir bool,
	skipPaths map[string]bool,
	deferred *Deferred,
) error {
	startPath := joinRepoPath(p.Cfg.SourceBase, pathOffset)
	astar, haveAncestor, err := p.resolveAncestor(startPath, sourceRev, sourceAncestors)
	if err != nil {
		return err
	}

	if haveAncestor {
		tgtRev, found := p.RevMap.Get(astar.CopyFromRev)
		if !found {
			haveAncestor = false
		} else {
			if parentCopyFrom != nil && parentCopyFrom.Path == astar.CopyFromPath && parentCopyFrom.Rev == astar.CopyFromRev {
				// The parent directory copy already brought this child
				// in; nothing more to do here but recurse for further
				// structural changes beneath it.
				return p.recurseIfDir(pathOffset, sourceRev, sourceAncestors, &CopyFromRef{astar.CopyFromPath, astar.CopyFromRev}, isDir, skipPaths, deferred)
			}
			return p.applyCopy(pathOffset, sourceRev, astar, tgtRev, isDir, sourceAncestors, skipPaths, deferred)
		}
	}

	if err := p.applyExportAdd(pathOffset, sourceRev, isDir, deferred); err != nil {
		return err
	}
	if isDir {
		return p.recurseIfDir(pathOffset, sourceRev, sourceAncestors, nil, isDir, skipPaths, deferred)
	}
	return nil
}

// resolveAncestor runs C3 and applies the in_ancestors filter of §4.5 step 2.
func (p *Planner) resolveAncestor(startPath string, sourceRev int, sourceAncestors []ancestry.Step) (ancestry.Step, bool, error) {
	if p.Cfg.SkipAncestry {
		return ancestry.Step{}, false, nil
	}
	chain, err := p.Tracer.FindAncestors(p.Cfg.SourceRoot, startPath, sourceRev, p.Cfg.SourceBase)
	if err != nil {
		return ancestry.Step{}, false, err
	}
	astar, ok := ancestry.Deepest(chain)
	if !ok {
		return ancestry.Step{}, false, nil
	}
	if !ancestry.InAncestors(sourceAncestors, astar.CopyFromPath, astar.CopyFromRev) {
		log.Announce(log.LevelDetail, "planner: ancestor %s@%d for %s not in replay's own chain, ignoring",
			astar.CopyFromPath, astar.CopyFromRev, startPath)
		return ancestry.Step{}, false, nil
	}
	return astar, true, nil
}

func (p *Planner) applyCopy(pathOffset string, sourceRev int, astar ancestry.Step, tgtRev int, isDir bool, sourceAncestors []ancestry.Step, skipPaths map[string]bool, deferred *Deferred) error {
	targetPath := p.wcPath(pathOffset)
	copyFromOffset := stripBase(astar.CopyFromPath, p.Cfg.SourceBase)
	srcURL := joinRepoPath(p.Cfg.TargetRoot, joinRepoPath(p.Cfg.TargetBase, copyFromOffset))

	info, statErr := p.Client.Info(targetPath, "")
	alreadyAtTarget := statErr == nil && info != nil && info.LastChangedRev == tgtRev
	if alreadyAtTarget {
		log.Announce(log.LevelDetail, "planner: %s already at target rev %d via parent copy, skipping", pathOffset, tgtRev)
		return p.recurseIfDir(pathOffset, sourceRev, sourceAncestors, &CopyFromRef{astar.CopyFromPath, astar.CopyFromRev}, isDir, skipPaths, deferred)
	}

	versioned := statErr == nil && info != nil
	if versioned {
		// A replace: remove then copy, as one logical step (§4.5 step 3).
		if err := p.Client.Remove(targetPath, true); err != nil {
			return err
		}
	}
	if err := ensureParent(p.Client, targetPath); err != nil {
		return err
	}
	if err := p.Client.Copy(srcURL, tgtRev, targetPath); err != nil {
		return err
	}

	if isDir {
		deferred.Dirs = append(deferred.Dirs, pathOffset)
	} else {
		if err := p.Client.Export(joinRepoPath(p.Cfg.SourceRoot, joinRepoPath(p.Cfg.SourceBase, pathOffset)), svnclient.Rev(sourceRev), targetPath, true, true); err != nil {
			return err
		}
	}
	if p.Cfg.SyncProperties {
		if err := p.syncProperties(pathOffset, sourceRev, targetPath); err != nil {
			return err
		}
	}
	if isDir {
		return p.recurseIfDir(pathOffset, sourceRev, sourceAncestors, &CopyFromRef{astar.CopyFromPath, astar.CopyFromRev}, isDir, skipPaths, deferred)
	}
	return nil
}

func (p *Planner) applyExportAdd(pathOffset string, sourceRev int, isDir bool, deferred *Deferred) error {
	targetPath := p.wcPath(pathOffset)
	if err := ensureParent(p.Client, targetPath); err != nil {
		return err
	}
	info, statErr := p.Client.Info(targetPath, "")
	versioned := statErr == nil && info != nil
	if isDir {
		deferred.Dirs = append(deferred.Dirs, pathOffset)
		if !versioned {
			if err := os.MkdirAll(targetPath, 0775); err != nil {
				return err
			}
			if err := p.Client.Add(targetPath, true); err != nil {
				return err
			}
		}
	} else {
		srcURL := joinRepoPath(p.Cfg.SourceRoot, joinRepoPath(p.Cfg.SourceBase, pathOffset))
		if err := p.Client.Export(srcURL, svnclient.Rev(sourceRev), targetPath, true, true); err != nil {
			return err
		}
		if !versioned {
			if err := p.Client.Add(targetPath, true); err != nil {
				return err
			}
		}
	}
	if p.Cfg.SyncProperties {
		return p.syncProperties(pathOffset, sourceRev, targetPath)
	}
	return nil
}

// recurseIfDir lists source children at sourceRev and target children on
// disk; children present in source but not in skipPaths get their own
// PlanAdd call, children present only in the target are removed (§4.5
// step 5).
func (p *Planner) recurseIfDir(pathOffset string, sourceRev int, sourceAncestors []ancestry.Step, parentCopyFrom *CopyFromRef, isDir bool, skipPaths map[string]bool, deferred *Deferred) error {
	if !isDir {
		return nil
	}
	srcURL := joinRepoPath(p.Cfg.SourceRoot, joinRepoPath(p.Cfg.SourceBase, pathOffset))
	children, err := p.Client.List(srcURL, svnclient.Rev(sourceRev), false, true)
	if err != nil {
		return err
	}
	srcNames := map[string]svnclient.Dirent{}
	for _, c := range children {
		srcNames[c.Path] = c
	}

	tgtChildren, err := p.DirList(p.wcPath(pathOffset))
	if err != nil {
		return err
	}
	tgtNames := map[string]bool{}
	for _, c := range tgtChildren {
		tgtNames[c.Path] = true
	}

	for name, child := range srcNames {
		childOffset := joinRepoPath(pathOffset, name)
		if skipPaths[childOffset] {
			continue
		}
		if err := p.PlanAdd(childOffset, sourceRev, sourceAncestors, parentCopyFrom, child.Kind == svnclient.KindDir, skipPaths, deferred); err != nil {
			return err
		}
	}
	for name := range tgtNames {
		if _, inSrc := srcNames[name]; inSrc {
			continue
		}
		if err := p.Client.Remove(p.wcPath(joinRepoPath(pathOffset, name)), true); err != nil {
			return err
		}
	}
	return nil
}

// syncProperties brings targetPath's versioned properties in line with the
// source path's at sourceRev: delete anything present on target but not
// source, set/update the rest. svn:mergeinfo is always stripped (§4.6).
// svn:externals is carried through only when CarryExternals is set
// (SPEC_FULL supplemented feature, since blindly copying svn:externals
// across repositories can point at paths that don't exist in the target).
func (p *Planner) syncProperties(pathOffset string, sourceRev int, targetPath string) error {
	srcURL := joinRepoPath(p.Cfg.SourceRoot, joinRepoPath(p.Cfg.SourceBase, pathOffset))
	srcProps, err := p.Client.PropgetAll(srcURL, svnclient.Rev(sourceRev))
	if err != nil {
		return err
	}
	tgtProps, err := p.Client.PropgetAll(targetPath, "")
	if err != nil {
		tgtProps = map[string]string{}
	}
	delete(srcProps, "svn:mergeinfo")
	delete(tgtProps, "svn:mergeinfo")
	if !p.Cfg.CarryExternals {
		delete(srcProps, "svn:externals")
	}

	for name := range tgtProps {
		if _, stillThere := srcProps[name]; !stillThere {
			if err := p.Client.Propdel(name, targetPath); err != nil {
				return err
			}
		}
	}
	for name, val := range srcProps {
		if tgtProps[name] == val {
			continue
		}
		if err := p.Client.Propset(name, val, targetPath); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) wcPath(pathOffset string) string {
	return filepath.Join(p.Cfg.WCPath, filepath.FromSlash(pathOffset))
}

func (p *Planner) localDirList(dir string) ([]svnclient.Dirent, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]svnclient.Dirent, 0, len(entries))
	for _, e := range entries {
		if e.Name() == ".svn" {
			continue
		}
		kind := svnclient.KindFile
		if e.IsDir() {
			kind = svnclient.KindDir
		}
		out = append(out, svnclient.Dirent{Path: e.Name(), Kind: kind})
	}
	return out, nil
}

func ensureParent(client Ops, targetPath string) error {
	parent := filepath.Dir(targetPath)
	if parent == "." || parent == string(filepath.Separator) {
		return nil
	}
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return client.Mkdir(parent)
	}
	return nil
}

func joinRepoPath(base, offset string) string {
	base = strings.TrimSuffix(base, "/")
	offset = strings.TrimPrefix(offset, "/")
	if offset == "" {
		return base
	}
	return base + "/" + offset
}

func stripBase(fullPath, base string) string {
	base = strings.TrimSuffix(base, "/")
	rest := strings.TrimPrefix(fullPath, base)
	return strings.TrimPrefix(rest, "/")
}
