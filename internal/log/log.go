// Package log provides the engine's leveled logging sink and a terminal
// progress meter ("Baton") for long-running work. The log iterator and
// the replay loop do not use the Baton; they report through Announce.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Verbosity mirrors the engine's CLI verbosity levels (§6.1): 0 is
// unconditional output, higher numbers gate progressively noisier detail.
type Verbosity int

const (
	LevelShout Verbosity = iota // unconditional
	LevelInfo
	LevelCommands // SVN command lines and their captured output
	LevelDetail   // ancestry tracing, planner decisions
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetLevel(logrus.InfoLevel)
}

// SetVerbosity maps the CLI's numeric verbosity onto a logrus level.
func SetVerbosity(v Verbosity) {
	switch {
	case v <= LevelShout:
		std.SetLevel(logrus.ErrorLevel)
	case v == LevelInfo:
		std.SetLevel(logrus.InfoLevel)
	case v == LevelCommands:
		std.SetLevel(logrus.DebugLevel)
	default:
		std.SetLevel(logrus.TraceLevel)
	}
}

// Logger returns the shared structured logger, for components that want
// to attach fields (revision numbers, paths) to a line.
func Logger() *logrus.Logger { return std }

// Announce is the teacher's announce()/debugEnable() idiom: a single call
// that both checks the level and formats the message, so call sites read
// the same way they do in surgeon/reposurgeon.go.
func Announce(level Verbosity, format string, args ...interface{}) {
	entry := std.WithField("component", "svn2svn")
	switch {
	case level <= LevelShout:
		entry.Errorf(format, args...)
	case level == LevelInfo:
		entry.Infof(format, args...)
	case level == LevelCommands:
		entry.Debugf(format, args...)
	default:
		entry.Tracef(format, args...)
	}
}

// DebugEnabled reports whether messages at the given level would actually
// be emitted, for call sites that want to skip building an expensive
// message (e.g. dumping full changed-path lists) when nobody will see it.
func DebugEnabled(level Verbosity) bool {
	switch {
	case level <= LevelShout:
		return true
	case level == LevelInfo:
		return std.IsLevelEnabled(logrus.InfoLevel)
	case level == LevelCommands:
		return std.IsLevelEnabled(logrus.DebugLevel)
	default:
		return std.IsLevelEnabled(logrus.TraceLevel)
	}
}
