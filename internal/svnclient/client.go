package svnclient

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/svn2svn/svn2svn/internal/errs"
	"github.com/svn2svn/svn2svn/internal/log"
)

var errNoEntry = errors.New("svnclient: no <entry> in info output")

// Client invokes the external svn binary. Every repository I/O operation
// the engine needs goes through one of its methods; no other package
// shells out to svn directly.
type Client struct {
	Binary string // defaults to "svn"
	Dir    string // working directory for commands that operate on a WC
}

// New returns a Client that runs the svn binary found on PATH.
func New(dir string) *Client {
	return &Client{Binary: "svn", Dir: dir}
}

// safePath is the one canonical wrapper audited for the two escaping
// hazards §9 calls out: a literal '@' in a path being parsed as svn's peg
// separator, and a path that looks like an option because it starts with
// '-'. Every call site in this file builds its argv through safePath
// rather than ad hoc string concatenation.
func safePath(p string) string {
	if strings.HasPrefix(p, "-") {
		p = "./" + p
	}
	if strings.Contains(p, "@") {
		p = p + "@"
	}
	return p
}

// run executes `svn <args...>` and returns captured stdout/stderr.
// noFail suppresses turning a non-zero exit into an error (§7's "no-fail
// mode" for optional lookups like listing a path that may not exist).
func (c *Client) run(noFail bool, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(c.Binary, args...)
	// Force C locale so date/number formatting in svn's output is stable
	// across environments (§5 "process-wide state ... established once").
	cmd.Env = append(os.Environ(), "LC_ALL=C", "LANG=C")
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	log.Announce(log.LevelCommands, "exec: %s %s", c.Binary, shellquote.Join(args...))
	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()
	if runErr != nil && !noFail {
		return stdout, stderr, &errs.ExternalCommandError{
			Command: c.Binary, Args: args, Stdout: stdout, Stderr: stderr, Err: runErr,
		}
	}
	if runErr != nil {
		return stdout, stderr, runErr
	}
	return stdout, stderr, nil
}

func sortChangedPaths(paths []ChangedPath) {
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })
}

// Info runs `svn info --xml` against a URL or working-copy path, optionally
// pegged at a revision.
func (c *Client) Info(urlOrWC string, rev RevSpec) (*Info, error) {
	args := []string{"info", "--xml", safePath(urlOrWC)}
	if rev != "" {
		args = append(args, "-r", string(rev))
	}
	out, _, err := c.run(false, args...)
	if err != nil {
		return nil, err
	}
	return parseInfoXML([]byte(out))
}

// GetRev resolves any revision form svn understands (decimal, HEAD,
// {date}) against url to a concrete numeric revision.
func (c *Client) GetRev(url string, spec RevSpec) (int, error) {
	info, err := c.Info(url, spec)
	if err != nil {
		return 0, err
	}
	return info.Revision, nil
}

// List runs `svn list --xml`. If tolerant is true, a non-existent path
// returns an empty slice with no error instead of propagating the failure
// (used during directory diffing, §4.1).
func (c *Client) List(urlOrWC string, rev RevSpec, recursive, tolerant bool) ([]Dirent, error) {
	args := []string{"list", "--xml", safePath(urlOrWC)}
	if rev != "" {
		args = append(args, "-r", string(rev))
	}
	if recursive {
		args = append(args, "--depth", "infinity")
	}
	out, _, err := c.run(tolerant, args...)
	if err != nil {
		if tolerant {
			return nil, nil
		}
		return nil, err
	}
	return parseListXML([]byte(out))
}

// LogOptions controls an `svn log` invocation.
type LogOptions struct {
	Limit        int
	StopOnCopy   bool
	GetPaths     bool
	GetRevprops  bool
}

// Log runs `svn log --xml` over [revA, revB]. Pass revA > revB for a
// reverse (newest-to-oldest) query, which the ancestry tracer relies on.
// Changed paths in the result are sorted ascending by path.
func (c *Client) Log(url string, revA, revB int, opt LogOptions) ([]LogEntry, error) {
	args := []string{"log", "--xml", safePath(url),
		"-r", strconv.Itoa(revA) + ":" + strconv.Itoa(revB)}
	if opt.GetPaths {
		args = append(args, "-v")
	}
	if opt.StopOnCopy {
		args = append(args, "--stop-on-copy")
	}
	if opt.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opt.Limit))
	}
	if opt.GetRevprops {
		args = append(args, "--with-all-revprops")
	}
	out, _, err := c.run(false, args...)
	if err != nil {
		return nil, err
	}
	entries, err := parseLogXML([]byte(out))
	if err != nil {
		return nil, err
	}
	if opt.GetRevprops {
		for i := range entries {
			props, perr := c.PropgetAllRevprop(url, entries[i].Revision)
			if perr == nil {
				entries[i].Revprops = props
			}
		}
	}
	return entries, nil
}

// Cat returns the full content of a versioned file at a revision.
func (c *Client) Cat(url string, rev RevSpec) ([]byte, error) {
	out, _, err := c.run(false, "cat", safePath(url), "-r", string(rev))
	return []byte(out), err
}

// Export writes a clean tree (no .svn metadata) for url at rev into dest.
func (c *Client) Export(url string, rev RevSpec, dest string, force, nonRecursive bool) error {
	args := []string{"export", safePath(url), safePath(dest), "-r", string(rev)}
	if force {
		args = append(args, "--force")
	}
	if nonRecursive {
		args = append(args, "--depth", "files")
	}
	_, _, err := c.run(false, args...)
	return err
}

// Checkout creates a working copy of url at dest.
func (c *Client) Checkout(url, dest string) error {
	_, _, err := c.run(false, "checkout", safePath(url), safePath(dest))
	return err
}

// CheckoutEmpty creates a working copy of url at dest with depth empty —
// just the root directory, no children — used for the scratch working
// copy that revnum-padding commits against (§4.7 keep-revnum mode).
func (c *Client) CheckoutEmpty(url, dest string) error {
	_, _, err := c.run(false, "checkout", "--depth", "empty", safePath(url), safePath(dest))
	return err
}

// Update brings path up to date (optionally non-recursively).
func (c *Client) Update(path string, nonRecursive bool) error {
	args := []string{"update", safePath(path)}
	if nonRecursive {
		args = append(args, "--depth", "immediates")
	}
	_, _, err := c.run(false, args...)
	return err
}

// Add schedules path for addition. parents also creates missing parent
// directories (`--parents`).
func (c *Client) Add(path string, parents bool) error {
	args := []string{"add", safePath(path)}
	if parents {
		args = append(args, "--parents")
	}
	_, _, err := c.run(false, args...)
	return err
}

// Copy schedules a versioned copy from srcURL@srcRev to dest.
func (c *Client) Copy(srcURL string, srcRev int, dest string) error {
	_, _, err := c.run(false, "copy", safePath(srcURL)+"@"+strconv.Itoa(srcRev), safePath(dest))
	return err
}

// Remove schedules path for deletion.
func (c *Client) Remove(path string, force bool) error {
	args := []string{"remove", safePath(path)}
	if force {
		args = append(args, "--force")
	}
	_, _, err := c.run(false, args...)
	return err
}

// Mkdir creates a versioned directory, including parents.
func (c *Client) Mkdir(path string) error {
	_, _, err := c.run(false, "mkdir", "--parents", safePath(path))
	return err
}

// Revert discards all pending changes under path.
func (c *Client) Revert(path string, recursive bool) error {
	args := []string{"revert", safePath(path)}
	if recursive {
		args = append(args, "-R")
	}
	_, _, err := c.run(false, args...)
	return err
}

// Status runs `svn status` and returns the raw lines (one per changed
// path); callers that need structured status parse the well-known 7-column
// prefix themselves.
func (c *Client) Status(path string, noRecursive bool) ([]string, error) {
	args := []string{"status", safePath(path)}
	if noRecursive {
		args = append(args, "--depth", "immediates")
	}
	out, _, err := c.run(false, args...)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// Cleanup purges the working copy's pristine/lock state.
func (c *Client) Cleanup(path string) error {
	args := []string{"cleanup"}
	if path != "" {
		args = append(args, safePath(path))
	}
	_, _, err := c.run(false, args...)
	return err
}

// CommitResult is the outcome of a successful commit.
type CommitResult struct {
	Revision int
}

var committedRevRE = committedRevisionRegexp()

// Commit assembles and runs `svn commit`, returning the new revision
// number parsed from svn's "Committed revision N." line (§4.7). An empty
// paths slice commits from c.Dir (used when the collected path list grew
// past the "pass explicit paths" threshold, §4.7).
func (c *Client) Commit(paths []string, message string, revprops map[string]string) (*CommitResult, error) {
	args := []string{"commit", "--force-log", "-m", message}
	for k, v := range revprops {
		args = append(args, "--with-revprop", k+"="+v)
	}
	for _, p := range paths {
		args = append(args, safePath(p))
	}
	out, _, err := c.run(false, args...)
	if err != nil {
		return nil, err
	}
	m := committedRevRE.FindStringSubmatch(out)
	if m == nil {
		// Nothing changed is not an error for our purposes; the caller
		// (commit driver) treats a nil result distinctly from an error.
		if strings.Contains(out, "nothing to commit") || strings.TrimSpace(out) == "" {
			return nil, nil
		}
		return nil, errs.Internalf("could not parse committed revision from: %q", out)
	}
	rev, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return nil, errs.Internalf("non-numeric committed revision %q", m[1])
	}
	return &CommitResult{Revision: rev}, nil
}

// PropsetRevprop sets a revision-scoped property (used for the svn:date /
// svn:author preservation modes; the svn2svn:* tracking revprops are
// passed with --with-revprop at commit time instead).
func (c *Client) PropsetRevprop(prop, value string, rev int, url string) error {
	_, _, err := c.run(false, "propset", "--revprop", "-r", strconv.Itoa(rev), prop, value, safePath(url))
	return err
}

// Propget reads one versioned property.
func (c *Client) Propget(pathOrURL, prop string, rev RevSpec) (string, error) {
	args := []string{"propget", prop, safePath(pathOrURL), "--strict"}
	if rev != "" {
		args = append(args, "-r", string(rev))
	}
	out, _, err := c.run(false, args...)
	return strings.TrimRight(out, "\n"), err
}

// PropgetAllRevprop reads every revision-scoped property of rev.
func (c *Client) PropgetAllRevprop(url string, rev int) (map[string]string, error) {
	out, _, err := c.run(false, "proplist", "--xml", "--verbose", "--revprop", "-r", strconv.Itoa(rev), safePath(url))
	if err != nil {
		return nil, err
	}
	return parsePropertiesXML([]byte(out))
}

// Proplist returns the names of versioned properties on a path.
func (c *Client) Proplist(pathOrURL string, rev RevSpec) ([]string, error) {
	props, err := c.PropgetAll(pathOrURL, rev)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

// PropgetAll returns every versioned property on a path as a name→value map.
func (c *Client) PropgetAll(pathOrURL string, rev RevSpec) (map[string]string, error) {
	args := []string{"proplist", "--xml", "--verbose", safePath(pathOrURL)}
	if rev != "" {
		args = append(args, "-r", string(rev))
	}
	out, _, err := c.run(false, args...)
	if err != nil {
		return nil, err
	}
	return parsePropertiesXML([]byte(out))
}

// Propset sets a versioned property.
func (c *Client) Propset(prop, value, path string) error {
	_, _, err := c.run(false, "propset", prop, value, safePath(path))
	return err
}

// Propdel removes a versioned property.
func (c *Client) Propdel(prop, path string) error {
	_, _, err := c.run(false, "propdel", prop, safePath(path))
	return err
}
