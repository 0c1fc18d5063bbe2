package revmap

import "strings"

const hexDigits = "0123456789ABCDEF"

// EncodeSourceURL percent-encodes a source URL the way the original
// implementation does before writing it into the svn2svn:source_url
// tracking revprop (`urllib.quote(source_url, ":/")`, svnreplay.py lines
// 367 and 429): everything outside the unreserved character set is
// escaped except ':' and '/', which stay literal so the revprop value
// remains a readable URL. RebuildFromTarget compares against this same
// encoding when matching tracking revprops on resume.
func EncodeSourceURL(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if isUnreservedSourceURLByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isUnreservedSourceURLByte(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', ':', '/':
		return true
	}
	return false
}
