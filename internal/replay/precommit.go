package replay

import (
	"bytes"
	"os/exec"

	shlex "github.com/anmitsu/go-shlex"

	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/log"
)

// RunPreCommit splits Cfg.PreCommit into argv the same way the teacher's
// REPL splits a typed command line, and runs it in the working copy
// before the commit proper. A non-zero exit aborts the revision (§6.1's
// pre-commit=shell-cmd option).
func (c *Committer) RunPreCommit(wcPath string) error {
	if c.Cfg.PreCommit == "" {
		return nil
	}
	words, err := shlex.Split(c.Cfg.PreCommit, true)
	if err != nil {
		return errs.Internalf("pre-commit command %q: %v", c.Cfg.PreCommit, err)
	}
	if len(words) == 0 {
		return nil
	}
	log.Announce(log.LevelCommands, "replay: pre-commit: %s", c.Cfg.PreCommit)
	cmd := exec.Command(words[0], words[1:]...)
	cmd.Dir = wcPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errs.Internalf("pre-commit command %q failed: %v: %s", c.Cfg.PreCommit, err, stderr.String())
	}
	return nil
}
