// Package orchestrator implements C8: the start-of-run procedure
// (resolving source/target, checking out or resuming the working copy,
// performing the initial import or rebuilding the revision map), the
// main replay loop over internal/logiter, and cleanup after a failure.
// Interrupt signals are not trapped here: an interrupt outside
// replay.Breaker's critical section ends the process without the
// cleanup and revert.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/flock"

	"github.com/svn2svn/svn2svn/internal/ancestry"
	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/log"
	"github.com/svn2svn/svn2svn/internal/logiter"
	"github.com/svn2svn/svn2svn/internal/planner"
	"github.com/svn2svn/svn2svn/internal/replay"
	"github.com/svn2svn/svn2svn/internal/revmap"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// Ops is the superset of client operations the orchestrator drives
// directly (beyond what it hands to the planner/processor/committer).
type Ops interface {
	replay.Ops
	replay.CommitOps
	replay.PaddingOps
	Info(urlOrWC string, rev svnclient.RevSpec) (*svnclient.Info, error)
	GetRev(url string, spec svnclient.RevSpec) (int, error)
	Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error)
	Checkout(url, dest string) error
	Cleanup(path string) error
	Status(path string, noRecursive bool) ([]string, error)
	Revert(path string, recursive bool) error
}

// Options are the user-facing knobs from the CLI (§6.1) not already
// carried by replay.Config.
type Options struct {
	RevStart     string // "" means 1
	RevEnd       string // "" means HEAD
	Resume       bool
	Force        bool
	EntriesLimit int
	CleanupEvery int // defaults to 100 if zero
}

// Run drives one full replay of sourceURL into targetURL under cfg/opts.
// It returns the last source revision successfully replayed (useful to
// the caller even on error, per §4.8's "exit non-zero with the last
// successfully replayed source revision recorded").
func Run(client Ops, sourceURL, targetURL string, cfg replay.Config, opts Options) (lastSourceRev int, err error) {
	lock := flock.New(filepath.Join(os.TempDir(), "svn2svn-"+sanitizeLockName(cfg.WCPath)+".lock"))
	if lockErr := lock.Lock(context.Background()); lockErr != nil {
		return 0, fmt.Errorf("orchestrator: acquiring working-copy lock: %w", lockErr)
	}
	defer lock.Unlock()

	cfg, startRev, endRev, bootErr := startup(client, sourceURL, targetURL, cfg, opts)
	if bootErr != nil {
		return 0, bootErr
	}

	state := replay.NewState()

	// Any error or uncaught exception while processing a revision aborts
	// that revision's commit and is unrecoverable for the run: clean up
	// and fully revert the working copy before returning, so the next
	// invocation (or a human) finds it in a known-good state (§4.8
	// "interrupt and failure").
	defer func() {
		if r := recover(); r != nil {
			if resumeErr := catchResume(r); resumeErr != nil {
				err = fmt.Errorf("orchestrator: resume failed: %w", resumeErr)
				return
			}
			cleanErr := cleanupAndRevert(client, cfg.WCPath)
			err = fmt.Errorf("orchestrator: aborted processing source r%d: %v (cleanup: %v)", lastSourceRev, r, cleanErr)
			return
		}
		if err != nil {
			if cleanErr := cleanupAndRevert(client, cfg.WCPath); cleanErr != nil {
				log.Announce(log.LevelShout, "orchestrator: cleanup after failure also failed: %v", cleanErr)
			}
		}
	}()

	tracer := ancestry.NewTracer(client)

	// The replay's own ancestor chain is computed exactly once and reused
	// by every PlanAdd call this run makes, whether this is a fresh
	// import or a --continue (§4.8 step 4).
	sourceAncestors, err := tracer.FindAncestors(cfg.SourceRoot, cfg.SourceBase, endRev, "")
	if err != nil {
		return 0, err
	}

	if opts.Resume {
		targetHeadRev, headErr := client.GetRev(targetURL, svnclient.RevSpec("HEAD"))
		if headErr != nil {
			return 0, headErr
		}
		rebuilt, rebuildErr := revmap.RebuildFromTarget(client, targetURL, targetHeadRev, cfg.SourceUUID, cfg.SourceRoot+cfg.SourceBase)
		if rebuildErr != nil {
			return 0, rebuildErr
		}
		last, ok := rebuilt.Last()
		if !ok {
			errs.Throw(errs.ClassResume, nil, "orchestrator: --continue given but no already-replayed source history found in target")
		}
		state.RevMap = rebuilt
		startRev = last
		lastSourceRev = last
		log.Announce(log.LevelInfo, "orchestrator: continuing from source r%d", last)
	}

	p := planner.New(cfg.PlannerConfig(), client, tracer, state.RevMap)
	processor := replay.NewProcessor(cfg, client, p)
	committer := replay.NewCommitter(cfg, client)

	if !opts.Resume {
		firstRev, initErr := initialImport(client, cfg, sourceAncestors, startRev, endRev, opts.Force, state, committer)
		if initErr != nil {
			return 0, initErr
		}
		startRev = firstRev
		lastSourceRev = firstRev
	}

	cleanupEvery := opts.CleanupEvery
	if cleanupEvery <= 0 {
		cleanupEvery = 100
	}
	commitCount := 0

	if startRev < endRev {
		it := logiter.New(client, cfg.SourceRoot+cfg.SourceBase, startRev+1, endRev, svnclient.LogOptions{GetPaths: true, GetRevprops: true})
		for {
			if opts.EntriesLimit > 0 && commitCount >= opts.EntriesLimit {
				break
			}
			entry, ok, nextErr := it.Next()
			if nextErr != nil {
				return lastSourceRev, nextErr
			}
			if !ok {
				break
			}

			if err := committer.PadRevisions(client, targetURL, entry.Revision, state); err != nil {
				return lastSourceRev, err
			}
			if err := committer.RunPreCommit(cfg.WCPath); err != nil {
				return lastSourceRev, err
			}

			var commitPaths []string
			if err := processor.ProcessEntry(entry, sourceAncestors, &commitPaths); err != nil {
				return lastSourceRev, err
			}
			if _, err := committer.Commit(entry, commitPaths, state); err != nil {
				return lastSourceRev, err
			}
			lastSourceRev = entry.Revision
			commitCount++
			if commitCount%cleanupEvery == 0 {
				client.Cleanup(cfg.WCPath)
			}
		}
	}

	if err := state.CloseScratch(); err != nil {
		log.Announce(log.LevelInfo, "orchestrator: scratch working copy cleanup: %v", err)
	}

	return lastSourceRev, nil
}

// startup resolves source/target info and revision bounds, and ensures
// the working copy exists in the state --continue expects (§4.8 steps
// 1-3).
func startup(client Ops, sourceURL, targetURL string, cfg replay.Config, opts Options) (replay.Config, int, int, error) {
	sourceInfo, err := client.Info(sourceURL, "")
	if err != nil {
		return cfg, 0, 0, err
	}
	targetInfo, err := client.Info(targetURL, "")
	if err != nil {
		return cfg, 0, 0, err
	}

	cfg.SourceRoot = sourceInfo.ReposURL
	cfg.SourceBase = strings.TrimPrefix(sourceURL, sourceInfo.ReposURL)
	cfg.SourceUUID = sourceInfo.ReposUUID
	cfg.TargetRoot = targetInfo.ReposURL
	cfg.TargetBase = strings.TrimPrefix(targetURL, targetInfo.ReposURL)
	cfg.TargetUUID = targetInfo.ReposUUID

	startSpec := svnclient.Rev(1)
	if opts.RevStart != "" {
		startSpec = svnclient.RevSpec(opts.RevStart)
	}
	startRev, err := client.GetRev(cfg.SourceRoot, startSpec)
	if err != nil {
		return cfg, 0, 0, fmt.Errorf("invalid start source revision %q: %w", opts.RevStart, err)
	}
	endSpec := svnclient.RevSpec("HEAD")
	if opts.RevEnd != "" {
		endSpec = svnclient.RevSpec(opts.RevEnd)
	}
	endRev, err := client.GetRev(cfg.SourceRoot, endSpec)
	if err != nil {
		return cfg, 0, 0, fmt.Errorf("invalid end source revision %q: %w", opts.RevEnd, err)
	}

	wcExists := dirExists(cfg.WCPath)
	if wcExists && !opts.Resume {
		if rmErr := os.RemoveAll(cfg.WCPath); rmErr != nil {
			return cfg, 0, 0, rmErr
		}
		wcExists = false
	}
	if !wcExists {
		log.Announce(log.LevelInfo, "orchestrator: checking out working copy")
		if err := client.Checkout(targetURL, cfg.WCPath); err != nil {
			return cfg, 0, 0, err
		}
	} else {
		log.Announce(log.LevelInfo, "orchestrator: cleaning up existing working copy")
		if err := cleanupAndRevert(client, cfg.WCPath); err != nil {
			return cfg, 0, 0, err
		}
	}

	return cfg, startRev, endRev, nil
}

// initialImport performs the non-resume bootstrap (§4.8 step 4): refuse
// a non-empty target unless forced, find the first log entry at/after
// startRev, export its top-level entries, add, sync properties, and
// commit with tracking revprops.
func initialImport(client Ops, cfg replay.Config, sourceAncestors []ancestry.Step, startRev, endRev int, force bool, state *replay.State, committer *replay.Committer) (int, error) {
	targetURL := cfg.TargetRoot + cfg.TargetBase

	if !force {
		existing, err := client.List(targetURL, "", false, true)
		if err != nil {
			return 0, err
		}
		if len(existing) > 0 {
			return 0, errs.Internalf("target %s already has content; pass --force to replay on top of it", targetURL)
		}
	}

	entries, err := client.Log(cfg.SourceRoot+cfg.SourceBase, startRev, endRev, svnclient.LogOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, &errs.EmptyLogError{URL: cfg.SourceRoot + cfg.SourceBase, RevA: startRev, RevB: endRev}
	}
	firstEntry := entries[0]
	firstRev := firstEntry.Revision

	sourceStartURL := cfg.SourceRoot + cfg.SourceBase
	if len(sourceAncestors) > 0 {
		sourceStartURL = cfg.SourceRoot + sourceAncestors[len(sourceAncestors)-1].CopyFromPath
	}

	topPaths, err := client.List(sourceStartURL, svnclient.Rev(firstRev), false, false)
	if err != nil {
		return 0, err
	}
	for _, p := range topPaths {
		target := filepath.Join(cfg.WCPath, filepath.FromSlash(p.Path))
		if p.Kind == svnclient.KindDir {
			if err := os.MkdirAll(target, 0775); err != nil {
				return 0, err
			}
		}
		srcURL := sourceStartURL + "/" + p.Path
		if err := client.Export(srcURL, svnclient.Rev(firstRev), target, true, false); err != nil {
			return 0, err
		}
		if err := client.Add(target, true); err != nil {
			return 0, err
		}
		if cfg.SyncProperties {
			props, err := client.PropgetAll(srcURL, svnclient.Rev(firstRev))
			if err != nil {
				return 0, err
			}
			delete(props, "svn:mergeinfo")
			if !cfg.CarryExternals {
				delete(props, "svn:externals")
			}
			for name, val := range props {
				if err := client.Propset(name, val, target); err != nil {
					return 0, err
				}
			}
		}
	}

	var commitPaths []string
	if _, err := committer.Commit(firstEntry, commitPaths, state); err != nil {
		return 0, err
	}
	return firstRev, nil
}

// cleanupAndRevert runs `svn cleanup` followed by a full recursive
// revert, the procedure §4.8 names both for reusing an existing working
// copy before a --continue run and for unwinding after a failed one.
func cleanupAndRevert(client Ops, wcPath string) error {
	if err := client.Cleanup(wcPath); err != nil {
		return err
	}
	return client.Revert(wcPath, true)
}

// catchResume recognizes only a resume-class exception among whatever Run's
// top-level recover caught, returning it as an error so the caller can skip
// the generic working-copy revert (an inconsistent --continue state didn't
// touch the working copy, so there's nothing to clean up). errs.Catch
// re-panics anything that isn't a resume exception; the nested recover here
// swallows that re-panic and reports no match, leaving r for the generic
// abort path.
func catchResume(r interface{}) (exc error) {
	defer func() {
		if recover() != nil {
			exc = nil
		}
	}()
	if e := errs.Catch(errs.ClassResume, r); e != nil {
		exc = e
	}
	return
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func sanitizeLockName(path string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(path)
}
