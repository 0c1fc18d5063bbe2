package replay

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/svn2svn/svn2svn/internal/planner"
)

// wcJoin maps a source-base-relative path offset onto an on-disk working
// copy path, the same way internal/planner does for its own operations.
func wcJoin(wcRoot, offset string) string {
	return filepath.Join(wcRoot, filepath.FromSlash(offset))
}

// joinRepoPath concatenates a repository base and a path offset with
// exactly one separating slash.
func joinRepoPath(base, offset string) string {
	base = strings.TrimSuffix(base, "/")
	offset = strings.TrimPrefix(offset, "/")
	if offset == "" {
		return base
	}
	return base + "/" + offset
}

// stripBase removes a leading repository base from fullPath, leaving the
// path offset used throughout the planner and processor.
func stripBase(fullPath, base string) string {
	base = strings.TrimSuffix(base, "/")
	rest := strings.TrimPrefix(fullPath, base)
	return strings.TrimPrefix(rest, "/")
}

// ensureParentDir creates target's parent directory in the working copy
// (versioned, via Mkdir) if it isn't there yet, mirroring
// internal/planner's ensureParent.
func ensureParentDir(client planner.Ops, target string) error {
	parent := filepath.Dir(target)
	if parent == "." || parent == string(filepath.Separator) {
		return nil
	}
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return client.Mkdir(parent)
	}
	return nil
}
