package revmap

import "testing"

func TestEncodeSourceURLPreservesColonAndSlash(t *testing.T) {
	got := EncodeSourceURL("http://svn.example.com/repos/trunk")
	want := "http://svn.example.com/repos/trunk"
	if got != want {
		t.Fatalf("EncodeSourceURL(%q) = %q, want %q (no escaping needed)", "http://svn.example.com/repos/trunk", got, want)
	}
}

func TestEncodeSourceURLEscapesSpaces(t *testing.T) {
	got := EncodeSourceURL("http://svn.example.com/my project/trunk")
	want := "http://svn.example.com/my%20project/trunk"
	if got != want {
		t.Fatalf("EncodeSourceURL(%q) = %q, want %q", "http://svn.example.com/my project/trunk", got, want)
	}
}

func TestEncodeSourceURLDistinguishesBases(t *testing.T) {
	root := "http://svn.example.com/repos"
	a := EncodeSourceURL(root + "/project-a/trunk")
	b := EncodeSourceURL(root + "/project-b/trunk")
	if a == b {
		t.Fatalf("two different bases under the same root must not encode to the same tracking value")
	}
}
