package main

import (
	"testing"

	"github.com/svn2svn/svn2svn/internal/log"
)

func TestParseRevisionRangeEmpty(t *testing.T) {
	start, end, err := parseRevisionRange("")
	if err != nil {
		t.Fatalf("parseRevisionRange(\"\"): %v", err)
	}
	if start != "" || end != "" {
		t.Fatalf("got (%q, %q), want both empty", start, end)
	}
}

func TestParseRevisionRangeStartOnly(t *testing.T) {
	start, end, err := parseRevisionRange("42")
	if err != nil {
		t.Fatalf("parseRevisionRange: %v", err)
	}
	if start != "42" || end != "" {
		t.Fatalf("got (%q, %q), want (\"42\", \"\")", start, end)
	}
}

func TestParseRevisionRangeStartAndEnd(t *testing.T) {
	start, end, err := parseRevisionRange("100:HEAD")
	if err != nil {
		t.Fatalf("parseRevisionRange: %v", err)
	}
	if start != "100" || end != "HEAD" {
		t.Fatalf("got (%q, %q), want (\"100\", \"HEAD\")", start, end)
	}
}

func TestParseRevisionRangeDateSpec(t *testing.T) {
	start, end, err := parseRevisionRange("{2010-01-31}:{2010-02-01}")
	if err != nil {
		t.Fatalf("parseRevisionRange: %v", err)
	}
	if start != "{2010-01-31}" || end != "{2010-02-01}" {
		t.Fatalf("got (%q, %q)", start, end)
	}
}

func TestParseRevisionRangeRejectsGarbage(t *testing.T) {
	if _, _, err := parseRevisionRange("not a revision"); err == nil {
		t.Fatalf("expected an error for an unparseable --revision argument")
	}
}

func TestVerbosityFromCount(t *testing.T) {
	cases := []struct {
		count int
		want  log.Verbosity
	}{
		{0, log.LevelShout},
		{1, log.LevelInfo},
		{2, log.LevelCommands},
		{3, log.LevelDetail},
		{10, log.LevelDetail},
	}
	for _, c := range cases {
		if got := verbosityFromCount(c.count); got != c.want {
			t.Errorf("verbosityFromCount(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}

func TestApplyFileConfigOnlyFillsUnsetFields(t *testing.T) {
	opts := &cliOptions{force: true, limit: 5}
	fc := &fileConfig{Force: false, Limit: 99, KeepAuthor: true, Revision: "1:10"}

	applyFileConfig(opts, fc)

	if !opts.force {
		t.Fatalf("an explicitly-set flag must not be overridden by the config file")
	}
	if opts.limit != 5 {
		t.Fatalf("limit = %d, want the explicitly-set 5, not the config file's 99", opts.limit)
	}
	if !opts.keepAuthor {
		t.Fatalf("keep-author should have been filled in from the config file")
	}
	if opts.revision != "1:10" {
		t.Fatalf("revision should have been filled in from the config file, got %q", opts.revision)
	}
}

func TestApplyFileConfigFillsSupplementedFlags(t *testing.T) {
	opts := &cliOptions{}
	fc := &fileConfig{SkipAncestry: true, CarryExternals: true}

	applyFileConfig(opts, fc)

	if !opts.skipAncestry {
		t.Fatalf("skip-ancestry should have been filled in from the config file")
	}
	if !opts.carryExternals {
		t.Fatalf("carry-externals should have been filled in from the config file")
	}
}

func TestArchiveBundlesKeepFlags(t *testing.T) {
	opts := &cliOptions{archive: true}
	applyArchiveBundle(opts)
	if !opts.keepAuthor || !opts.keepDate || !opts.keepProp {
		t.Fatalf("--archive must bundle keep-author, keep-date, and keep-prop, got %+v", opts)
	}
}
