// Package svnclient is the C1 SVN client adapter: it invokes the external
// svn command-line binary and parses its XML output into typed records.
// No other package in this module talks to the svn binary directly.
package svnclient

import (
	"strconv"
	"time"
)

// Kind is the node kind reported by svn: file, dir, or "" (legacy server).
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
	KindNone Kind = ""
)

// Action is a changed-path action letter as svn log -v reports it.
type Action byte

const (
	ActionAdd     Action = 'A'
	ActionModify  Action = 'M'
	ActionReplace Action = 'R'
	ActionDelete  Action = 'D'
)

// ChangedPath is one line of a log entry's changed-paths list (§3).
type ChangedPath struct {
	Path         string
	Kind         Kind
	Action       Action
	CopyFromPath string // empty if this change has no copy-from
	CopyFromRev  int    // meaningful only if CopyFromPath != ""
}

// HasCopyFrom reports whether this changed path records a copy-from edge.
func (c ChangedPath) HasCopyFrom() bool { return c.CopyFromPath != "" }

// LogEntry is one revision's worth of history (§3). ChangedPaths is always
// sorted ascending by Path so that parents precede children.
type LogEntry struct {
	Revision     int
	Author       string
	DateRaw      string
	DateEpoch    time.Time
	Message      string
	URL          string
	ChangedPaths []ChangedPath
	Revprops     map[string]string
}

// Info is the parsed result of `svn info`.
type Info struct {
	URL            string
	Kind           Kind
	Revision       int
	ReposURL       string
	ReposUUID      string
	LastChangedRev int
}

// Dirent is one entry of `svn list`.
type Dirent struct {
	Path string
	Kind Kind
}

// RevSpec is any revision form svn understands: a decimal revision number
// rendered as a string, "HEAD", "BASE", "{2019-01-01}", etc.
type RevSpec string

// Rev renders a plain numeric revision as a RevSpec.
func Rev(n int) RevSpec {
	if n < 0 {
		return "HEAD"
	}
	return RevSpec(strconv.Itoa(n))
}
