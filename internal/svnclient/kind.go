package svnclient

import (
	"regexp"
	"strings"

	"github.com/svn2svn/svn2svn/internal/errs"
)

func committedRevisionRegexp() *regexp.Regexp {
	return regexp.MustCompile(`Committed revision (\d+)\.`)
}

// GetKind resolves an empty Kind on a changed-path record (the pre-SVN-1.6
// legacy-server case, §3, §4.1). For a delete, it looks for copy-from
// entries among changedPathsInRev whose path is a prefix of path: with
// exactly one, it resolves kind from the copy source; with none, it asks
// `svn info` for path at rev-1. For any other action it just asks
// `svn info` directly at rev.
//
// Per the Open Question in spec.md §9, nested copy-from ancestors in the
// same revision that are both a prefix of path are ambiguous and the
// engine does not guess: it surfaces errs.InternalError instead of
// silently picking one.
func (c *Client) GetKind(reposRoot, path string, rev int, action Action, changedPathsInRev []ChangedPath) (Kind, error) {
	if action != ActionDelete {
		info, err := c.Info(reposRoot+"/"+path, Rev(rev))
		if err != nil {
			return KindNone, err
		}
		return info.Kind, nil
	}

	var candidates []ChangedPath
	for _, cp := range changedPathsInRev {
		if !cp.HasCopyFrom() {
			continue
		}
		if cp.Path == path || strings.HasPrefix(path, cp.Path+"/") {
			candidates = append(candidates, cp)
		}
	}
	switch len(candidates) {
	case 0:
		info, err := c.Info(reposRoot+"/"+path, Rev(rev-1))
		if err != nil {
			return KindNone, err
		}
		return info.Kind, nil
	case 1:
		cp := candidates[0]
		suffix := strings.TrimPrefix(path, cp.Path)
		origPath := cp.CopyFromPath + suffix
		info, err := c.Info(reposRoot+"/"+origPath, Rev(cp.CopyFromRev))
		if err != nil {
			return KindNone, err
		}
		return info.Kind, nil
	default:
		return KindNone, errs.Internalf(
			"ambiguous copy-from ancestors for deleted path %s@%d: %d candidates in this revision",
			path, rev, len(candidates))
	}
}
