// Package replay implements C6 (the log entry processor) and C7 (the
// commit driver): turning one source LogEntry into a sequence of working
// copy mutations followed by one target commit.
//
// Per the redesign note on eliminating mutable globals, all inputs fixed
// for the life of a run live in Config; everything that changes as the
// run progresses lives in State, which callers pass explicitly rather
// than reaching for package-level variables the way the original
// Python module's globals did.
package replay

import (
	"time"

	"github.com/svn2svn/svn2svn/internal/planner"
	"github.com/svn2svn/svn2svn/internal/revmap"
)

// Config is the immutable configuration for one replay run.
type Config struct {
	SourceRoot string // repository root URL of the source
	SourceBase string // path within the source repository being replayed
	TargetRoot string // repository root URL of the target
	TargetBase string // path within the target repository being replayed

	WCPath string // on-disk root of the target working copy

	SourceUUID string
	TargetUUID string

	SyncProperties bool
	CarryExternals bool
	SkipAncestry   bool

	KeepAuthor  bool // carry svn:author via post-commit propset
	KeepDate    bool // carry svn:date via post-commit propset
	KeepRevprop bool // carry all other source revprops verbatim
	KeepRevnum  bool // pad target revisions to equal source revisions

	LogAuthor bool // append a cosmetic "Author: ..." line to the message
	LogDate   bool // append a cosmetic "Date: ..." line to the message

	PreCommit string // shell command run before each commit, empty if unset
	DryRun    bool

	// explicitPathLimit is the §4.7 threshold: fewer changed paths than
	// this are passed to `svn commit` explicitly; at or above it, commit
	// from the working copy root and let svn scan for itself.
	explicitPathLimit int
}

// DefaultExplicitPathLimit is the threshold used when Config doesn't
// override it via WithExplicitPathLimit (tests use a small value so
// fixtures stay readable).
const DefaultExplicitPathLimit = 100

func (c Config) pathLimit() int {
	if c.explicitPathLimit > 0 {
		return c.explicitPathLimit
	}
	return DefaultExplicitPathLimit
}

// WithExplicitPathLimit returns a copy of c with its commit-paths
// threshold overridden, used by tests.
func (c Config) WithExplicitPathLimit(n int) Config {
	c.explicitPathLimit = n
	return c
}

// State is the mutable state threaded through one replay run: the
// revision map and bookkeeping about the last revision actually
// committed, which the orchestrator reports on interrupt or failure
// (§4.8).
type State struct {
	RevMap          *revmap.Map
	LastSourceRev   int
	LastTargetRev   int
	ScratchWC       string // populated lazily by PadRevisions, see padding.go
}

// NewState returns a State backed by a fresh, empty revision map.
func NewState() *State {
	return &State{RevMap: revmap.New()}
}

// PlannerConfig narrows Config to the fields internal/planner needs.
func (c Config) PlannerConfig() planner.Config {
	return planner.Config{
		SourceRoot:     c.SourceRoot,
		SourceBase:     c.SourceBase,
		TargetRoot:     c.TargetRoot,
		TargetBase:     c.TargetBase,
		WCPath:         c.WCPath,
		SyncProperties: c.SyncProperties,
		CarryExternals: c.CarryExternals,
		SkipAncestry:   c.SkipAncestry,
	}
}

// nowFn is a swappable clock. The cosmetic Date: line does not read it;
// buildMessage takes that date from the log entry's DateEpoch.
var nowFn = time.Now
