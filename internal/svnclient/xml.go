package svnclient

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"
)

// The structs in this file mirror the XML schemas of `svn info --xml`,
// `svn log --xml -v`, `svn list --xml`, and `svn proplist --xml`. No
// third-party XML library appears anywhere in the retrieved example pack
// (cogentcore's own xmlx package is itself a thin wrapper over this same
// stdlib package), so encoding/xml is the consistent idiom here.

type xmlLog struct {
	XMLName xml.Name      `xml:"log"`
	Entries []xmlLogEntry `xml:"logentry"`
}

type xmlLogEntry struct {
	Revision int          `xml:"revision,attr"`
	Author   string       `xml:"author"`
	Date     string       `xml:"date"`
	Msg      string       `xml:"msg"`
	Paths    []xmlLogPath `xml:"paths>path"`
}

type xmlLogPath struct {
	Action       string `xml:"action,attr"`
	Kind         string `xml:"kind,attr"`
	CopyFromPath string `xml:"copyfrom-path,attr"`
	CopyFromRev  string `xml:"copyfrom-rev,attr"`
	Path         string `xml:",chardata"`
}

type xmlInfo struct {
	XMLName xml.Name       `xml:"info"`
	Entries []xmlInfoEntry `xml:"entry"`
}

type xmlInfoEntry struct {
	Kind       string `xml:"kind,attr"`
	Path       string `xml:"path,attr"`
	Revision   int    `xml:"revision,attr"`
	URL        string `xml:"url"`
	Repository struct {
		Root string `xml:"root"`
		UUID string `xml:"uuid"`
	} `xml:"repository"`
	Commit struct {
		Revision int `xml:"revision,attr"`
	} `xml:"commit"`
}

type xmlLists struct {
	XMLName xml.Name  `xml:"lists"`
	Lists   []xmlList `xml:"list"`
}

type xmlList struct {
	Path    string         `xml:"path,attr"`
	Entries []xmlListEntry `xml:"entry"`
}

type xmlListEntry struct {
	Kind string `xml:"kind,attr"`
	Name string `xml:"name"`
}

type xmlProperties struct {
	XMLName xml.Name    `xml:"properties"`
	Targets []xmlTarget `xml:"target"`
}

type xmlTarget struct {
	Path       string        `xml:"path,attr"`
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// stripControlChars removes control characters below 0x20 other than
// TAB/LF/CR before parsing, per §6.3 — some svn servers emit raw control
// bytes in log messages that make encoding/xml choke.
func stripControlChars(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			continue
		}
		out = append(out, c)
	}
	return out
}

func parseLogXML(raw []byte) ([]LogEntry, error) {
	var doc xmlLog
	if err := xml.NewDecoder(bytes.NewReader(stripControlChars(raw))).Decode(&doc); err != nil {
		return nil, err
	}
	entries := make([]LogEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		entry := LogEntry{
			Revision: e.Revision,
			Author:   e.Author,
			DateRaw:  e.Date,
			Message:  e.Msg,
		}
		if t, err := time.Parse(time.RFC3339Nano, e.Date); err == nil {
			entry.DateEpoch = t
		}
		paths := make([]ChangedPath, 0, len(e.Paths))
		for _, p := range e.Paths {
			cp := ChangedPath{
				Path:         p.Path,
				Kind:         Kind(p.Kind),
				Action:       Action(firstByte(p.Action)),
				CopyFromPath: p.CopyFromPath,
			}
			if p.CopyFromRev != "" {
				if n, err := strconv.Atoi(p.CopyFromRev); err == nil {
					cp.CopyFromRev = n
				}
			}
			paths = append(paths, cp)
		}
		sortChangedPaths(paths)
		entry.ChangedPaths = paths
		entries = append(entries, entry)
	}
	return entries, nil
}

func firstByte(s string) byte {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

func parseInfoXML(raw []byte) (*Info, error) {
	var doc xmlInfo
	if err := xml.NewDecoder(bytes.NewReader(stripControlChars(raw))).Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Entries) == 0 {
		return nil, errNoEntry
	}
	e := doc.Entries[0]
	return &Info{
		URL:            e.URL,
		Kind:           Kind(e.Kind),
		Revision:       e.Revision,
		ReposURL:       e.Repository.Root,
		ReposUUID:      e.Repository.UUID,
		LastChangedRev: e.Commit.Revision,
	}, nil
}

func parseListXML(raw []byte) ([]Dirent, error) {
	var doc xmlLists
	if err := xml.NewDecoder(bytes.NewReader(stripControlChars(raw))).Decode(&doc); err != nil {
		return nil, err
	}
	var out []Dirent
	for _, list := range doc.Lists {
		for _, e := range list.Entries {
			out = append(out, Dirent{Path: e.Name, Kind: Kind(e.Kind)})
		}
	}
	return out, nil
}

func parsePropertiesXML(raw []byte) (map[string]string, error) {
	var doc xmlProperties
	if err := xml.NewDecoder(bytes.NewReader(stripControlChars(raw))).Decode(&doc); err != nil {
		return nil, err
	}
	props := map[string]string{}
	for _, t := range doc.Targets {
		for _, p := range t.Properties {
			props[p.Name] = p.Value
		}
	}
	return props, nil
}
