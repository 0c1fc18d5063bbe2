package replay

import (
	"fmt"
	"os"

	"github.com/svn2svn/svn2svn/internal/log"
	"github.com/svn2svn/svn2svn/internal/revmap"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// PaddingOps is the subset of *svnclient.Client the revnum-padding
// procedure needs, against a scratch working copy separate from the main
// replay WC (so padding commits never touch files the replay is mid-way
// through staging).
type PaddingOps interface {
	CheckoutEmpty(url, dest string) error
	Propset(prop, value, path string) error
	Commit(paths []string, message string, revprops map[string]string) (*svnclient.CommitResult, error)
}

// PadRevisions implements "keep-revnum" mode (§4.7): if wantSourceRev
// exceeds state.LastTargetRev+1, commit empty placeholder revisions
// against a scratch working copy, each carrying
// svn2svn:keep-revnum=<padded source rev>, until the next real commit
// will land on wantSourceRev.
func (c *Committer) PadRevisions(ops PaddingOps, targetURL string, wantSourceRev int, state *State) error {
	if !c.Cfg.KeepRevnum {
		return nil
	}
	if state.ScratchWC == "" {
		dir, err := os.MkdirTemp("", "svn2svn-pad-")
		if err != nil {
			return err
		}
		if err := ops.CheckoutEmpty(targetURL, dir); err != nil {
			os.RemoveAll(dir)
			return err
		}
		state.ScratchWC = dir
	}

	for state.LastTargetRev+1 < wantSourceRev {
		padded := state.LastTargetRev + 1
		if err := ops.Propset(revmap.RevpropKeepRevnum, fmt.Sprintf("%d", padded), state.ScratchWC); err != nil {
			return err
		}
		result, err := ops.Commit([]string{state.ScratchWC}, fmt.Sprintf("svn2svn: padding revision %d", padded), nil)
		if err != nil {
			return err
		}
		if result == nil {
			// Nothing to commit: propset on an unversioned revprop-less
			// root still dirties the WC for svn, so this shouldn't
			// normally happen; guard against an infinite loop.
			return fmt.Errorf("replay: keep-revnum padding made no progress at target rev %d", state.LastTargetRev)
		}
		log.Announce(log.LevelInfo, "replay: padded target r%d to keep pace with source", result.Revision)
		state.LastTargetRev = result.Revision
	}
	return nil
}

// CloseScratch removes the scratch working copy created by PadRevisions,
// if one was ever checked out.
func (state *State) CloseScratch() error {
	if state.ScratchWC == "" {
		return nil
	}
	err := os.RemoveAll(state.ScratchWC)
	state.ScratchWC = ""
	return err
}
