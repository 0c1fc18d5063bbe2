package replay

import (
	"fmt"
	"strings"

	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/log"
	"github.com/svn2svn/svn2svn/internal/revmap"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// CommitOps is the subset of *svnclient.Client the commit driver needs.
type CommitOps interface {
	Commit(paths []string, message string, revprops map[string]string) (*svnclient.CommitResult, error)
	PropsetRevprop(prop, value string, rev int, url string) error
}

// cosmeticRevprops are the source revprops never blindly carried forward
// even when KeepRevprop is set: svn:log/author/date each have their own
// dedicated, explicitly-gated handling.
var cosmeticRevprops = map[string]bool{
	"svn:log":    true,
	"svn:author": true,
	"svn:date":   true,
}

// Committer is C7: it assembles and performs one target commit per
// source LogEntry, carrying the tracking revprops and, in dry-run mode,
// skipping the commit entirely.
type Committer struct {
	Cfg     Config
	Client  CommitOps
	Breaker *Breaker
}

// NewCommitter builds a Committer sharing client with the rest of the run.
func NewCommitter(cfg Config, client CommitOps) *Committer {
	return &Committer{Cfg: cfg, Client: client, Breaker: NewBreaker()}
}

// Commit performs the target commit for entry, given the path offsets
// process_entry collected, and records the new mapping in state on
// success. It returns the new target revision.
func (c *Committer) Commit(entry svnclient.LogEntry, commitPaths []string, state *State) (int, error) {
	if c.Cfg.DryRun {
		log.Announce(log.LevelInfo, "replay: dry-run, skipping commit for source r%d", entry.Revision)
		return 0, nil
	}

	message := c.buildMessage(entry)
	revprops := c.buildRevprops(entry)
	paths := c.commitArgPaths(commitPaths)

	var result *svnclient.CommitResult
	critErr := c.Breaker.Critical(func() error {
		var err error
		result, err = c.Client.Commit(paths, message, revprops)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		if c.Cfg.KeepDate && entry.DateRaw != "" {
			if err := c.Client.PropsetRevprop("svn:date", entry.DateRaw, result.Revision, c.Cfg.TargetRoot); err != nil {
				errs.Throw(errs.ClassCommit, err, "propset svn:date on target r%d: %v", result.Revision, err)
			}
		}
		if c.Cfg.KeepAuthor && entry.Author != "" {
			if err := c.Client.PropsetRevprop("svn:author", entry.Author, result.Revision, c.Cfg.TargetRoot); err != nil {
				errs.Throw(errs.ClassCommit, err, "propset svn:author on target r%d: %v", result.Revision, err)
			}
		}
		return nil
	})
	if critErr != nil {
		return 0, critErr
	}
	if result == nil {
		return 0, errs.Internalf("commit for source r%d produced no new target revision", entry.Revision)
	}

	state.RevMap.Insert(entry.Revision, result.Revision)
	state.LastSourceRev = entry.Revision
	state.LastTargetRev = result.Revision
	return result.Revision, nil
}

// buildMessage reproduces the source message, optionally followed by
// cosmetic Date:/Author: lines (§4.7) — independent of the true
// svn:date/svn:author revprop preservation gated by KeepDate/KeepAuthor.
func (c *Committer) buildMessage(entry svnclient.LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Message)
	if c.Cfg.LogDate {
		fmt.Fprintf(&b, "\nDate: %s", entry.DateEpoch.Local().Format("2006-01-02 15:04:05 -0700"))
	}
	if c.Cfg.LogAuthor {
		fmt.Fprintf(&b, "\nAuthor: %s", entry.Author)
	}
	return b.String()
}

// buildRevprops assembles the three tracking revprops plus, when
// KeepRevprop is set, every other source revprop not otherwise handled.
func (c *Committer) buildRevprops(entry svnclient.LogEntry) map[string]string {
	props := map[string]string{
		revmap.RevpropSourceUUID: c.Cfg.SourceUUID,
		revmap.RevpropSourceURL:  revmap.EncodeSourceURL(c.Cfg.SourceRoot + c.Cfg.SourceBase),
		revmap.RevpropSourceRev:  fmt.Sprintf("%d", entry.Revision),
	}
	if c.Cfg.KeepRevprop {
		for k, v := range entry.Revprops {
			if cosmeticRevprops[k] {
				continue
			}
			props[k] = v
		}
	}
	return props
}

// commitArgPaths implements the §4.7 explicit-vs-root threshold: below
// the limit, pass every touched path explicitly (deduplicated, since one
// offset may recur via both its own changed-path entry and a planner
// recursion); at or above it, return nil so Commit scans from its
// working directory instead.
func (c *Committer) commitArgPaths(offsets []string) []string {
	seen := map[string]bool{}
	var unique []string
	for _, o := range offsets {
		if seen[o] {
			continue
		}
		seen[o] = true
		unique = append(unique, o)
	}
	if len(unique) >= c.Cfg.pathLimit() {
		return nil
	}
	paths := make([]string, len(unique))
	for i, o := range unique {
		paths[i] = wcJoin(c.Cfg.WCPath, o)
	}
	return paths
}
