package revmap

import (
	"strconv"

	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// TrackingRevprops names the three revprops every replayed target commit
// carries (§3, §6.2).
const (
	RevpropSourceUUID = "svn2svn:source_uuid"
	RevpropSourceURL  = "svn2svn:source_url"
	RevpropSourceRev  = "svn2svn:source_rev"
	RevpropKeepRevnum = "svn2svn:keep-revnum"
)

// LogClient is the subset of *svnclient.Client the rebuild needs.
type LogClient interface {
	Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error)
}

// RebuildFromTarget reconstructs a Map by scanning the target repository's
// history for commits carrying this engine's tracking revprops that match
// the configured source (§4.4 construction 1). sourceURL is the full,
// unencoded source URL (repo root + base path); it is percent-encoded the
// same way commit.go encodes svn2svn:source_url before the comparison. A
// UUID or URL mismatch on an entry means it belongs to some other history
// grafted into the target; such entries are silently skipped, not treated
// as errors.
func RebuildFromTarget(client LogClient, targetURL string, targetHeadRev int, sourceUUID, sourceURL string) (*Map, error) {
	entries, err := client.Log(targetURL, 1, targetHeadRev, svnclient.LogOptions{GetRevprops: true})
	if err != nil {
		return nil, err
	}
	encodedSourceURL := EncodeSourceURL(sourceURL)
	m := New()
	for _, e := range entries {
		uuid, hasUUID := e.Revprops[RevpropSourceUUID]
		url, hasURL := e.Revprops[RevpropSourceURL]
		revStr, hasRev := e.Revprops[RevpropSourceRev]
		if !hasUUID || !hasURL || !hasRev || uuid != sourceUUID || url != encodedSourceURL {
			continue
		}
		srcRev, convErr := strconv.Atoi(revStr)
		if convErr != nil {
			continue
		}
		m.Insert(srcRev, e.Revision)
	}
	return m, nil
}
