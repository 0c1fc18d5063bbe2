package svnclient

import "testing"

func assertEqual(t *testing.T, tag string, got, want interface{}) {
	if got != want {
		t.Errorf("%s: got %v, want %v", tag, got, want)
	}
}

const sampleLogXML = `<?xml version="1.0" encoding="UTF-8"?>
<log>
<logentry revision="3">
<author>alice</author>
<date>2020-01-02T03:04:05.000000Z</date>
<paths>
<path action="A" kind="file" copyfrom-path="/trunk/a.txt" copyfrom-rev="2">/trunk/b.txt</path>
<path action="D" kind="file">/trunk/a.txt</path>
</paths>
<msg>rename a to b</msg>
</logentry>
</log>
`

func TestParseLogXMLSortsPaths(t *testing.T) {
	entries, err := parseLogXML([]byte(sampleLogXML))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	assertEqual(t, "entry count", len(entries), 1)
	e := entries[0]
	assertEqual(t, "revision", e.Revision, 3)
	assertEqual(t, "author", e.Author, "alice")
	assertEqual(t, "path count", len(e.ChangedPaths), 2)
	// Sorted ascending: /trunk/a.txt before /trunk/b.txt, so deletes of a
	// sibling precede the add of a lexicographically-later path.
	assertEqual(t, "first path", e.ChangedPaths[0].Path, "/trunk/a.txt")
	assertEqual(t, "first action", string(rune(e.ChangedPaths[0].Action)), "D")
	assertEqual(t, "second path", e.ChangedPaths[1].Path, "/trunk/b.txt")
	assertEqual(t, "copyfrom path", e.ChangedPaths[1].CopyFromPath, "/trunk/a.txt")
	assertEqual(t, "copyfrom rev", e.ChangedPaths[1].CopyFromRev, 2)
}

func TestParseLogXMLStripsControlChars(t *testing.T) {
	dirty := []byte("<log><logentry revision=\"1\"><msg>hi\x01there</msg></logentry></log>")
	entries, err := parseLogXML(dirty)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	assertEqual(t, "msg", entries[0].Message, "hithere")
}

const sampleInfoXML = `<?xml version="1.0"?>
<info>
<entry kind="dir" path="trunk" revision="42">
<url>https://example.com/repo/trunk</url>
<repository>
<root>https://example.com/repo</root>
<uuid>abc-123</uuid>
</repository>
<commit revision="40">
<author>bob</author>
</commit>
</entry>
</info>
`

func TestParseInfoXML(t *testing.T) {
	info, err := parseInfoXML([]byte(sampleInfoXML))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	assertEqual(t, "kind", info.Kind, KindDir)
	assertEqual(t, "revision", info.Revision, 42)
	assertEqual(t, "uuid", info.ReposUUID, "abc-123")
	assertEqual(t, "last changed rev", info.LastChangedRev, 40)
}

func TestCommittedRevisionRegexp(t *testing.T) {
	re := committedRevisionRegexp()
	m := re.FindStringSubmatch("Committed revision 117.\n")
	if m == nil || m[1] != "117" {
		t.Fatalf("expected to capture 117, got %v", m)
	}
}

func TestSafePathEscapesPeg(t *testing.T) {
	assertEqual(t, "at-sign", safePath("/trunk/foo@bar"), "/trunk/foo@bar@")
	assertEqual(t, "dash-prefixed", safePath("-rf"), "./-rf")
	assertEqual(t, "plain", safePath("/trunk/foo"), "/trunk/foo")
}
