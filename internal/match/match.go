// Package match implements the directory-match predicate shared by line
// counting (skip decisions) and directory removal (selection decisions).
//
// A pattern is a fragment of one or more path segments. It matches a directory
// when a run of consecutive segments of the directory's path, relative to the
// walk root, lines up with the pattern segments. Every pattern segment but the
// last must match a whole path segment; the last matches a prefix of its path
// segment, so "test" selects both "test" and "test_data" but "es" does not
// select "test". A trailing separator ("test/") turns the last segment into a
// whole-segment match as well.
//
// Inside a segment '*' matches any run of characters. Every other character,
// including '?', '[', '{' and '\', is matched literally.
package match

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyPattern is returned for patterns that contain no segment.
	ErrEmptyPattern = errors.New("pattern is empty")
)

// Result explains why a path matched.
type Result struct {
	Pattern string // pattern as supplied by the caller
	Segment string // path segment(s) the pattern lined up with
}

type compiled struct {
	raw      string
	segments []glob.Glob
}

// Matcher tests paths below a fixed root against a set of patterns.
type Matcher struct {
	root     string
	patterns []compiled
}

// Compile builds a Matcher for root. An empty pattern list yields a Matcher
// that matches nothing.
func Compile(root string, patterns []string) (*Matcher, error) {
	m := &Matcher{root: filepath.Clean(root)}
	for _, p := range patterns {
		c, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, c)
	}
	return m, nil
}

// Empty reports whether the matcher holds no patterns.
func (m *Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Match reports whether path matches any pattern. The root itself and paths
// outside root never match.
func (m *Matcher) Match(path string) (Result, bool) {
	if len(m.patterns) == 0 {
		return Result{}, false
	}
	segs, ok := m.relSegments(path)
	if !ok {
		return Result{}, false
	}
	for _, p := range m.patterns {
		if at := p.find(segs); at >= 0 {
			return Result{
				Pattern: p.raw,
				Segment: strings.Join(segs[at:at+len(p.segments)], string(filepath.Separator)),
			}, true
		}
	}
	return Result{}, false
}

func (m *Matcher) relSegments(path string) ([]string, bool) {
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil || rel == "." {
		return nil, false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	return strings.Split(rel, string(filepath.Separator)), true
}

// find returns the index of the first path segment where the pattern lines
// up, or -1.
func (c compiled) find(segs []string) int {
	n := len(c.segments)
	for start := 0; start+n <= len(segs); start++ {
		ok := true
		for i, g := range c.segments {
			if !g.Match(segs[start+i]) {
				ok = false
				break
			}
		}
		if ok {
			return start
		}
	}
	return -1
}

func compilePattern(raw string) (compiled, error) {
	normalized := strings.ReplaceAll(raw, string(os.PathSeparator), "/")
	whole := strings.HasSuffix(normalized, "/")

	var parts []string
	for _, s := range strings.Split(normalized, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return compiled{}, ErrEmptyPattern
	}

	c := compiled{raw: raw, segments: make([]glob.Glob, 0, len(parts))}
	for i, part := range parts {
		expr := segmentExpr(part)
		if i == len(parts)-1 && !whole {
			expr += "*"
		}
		g, err := glob.Compile(expr, '/')
		if err != nil {
			return compiled{}, err
		}
		c.segments = append(c.segments, g)
	}
	return c, nil
}

// segmentExpr quotes everything except '*'.
func segmentExpr(segment string) string {
	pieces := strings.Split(segment, "*")
	for i, p := range pieces {
		pieces[i] = glob.QuoteMeta(p)
	}
	return strings.Join(pieces, "*")
}

// MatchSuffix reports whether name ends with any of the given suffixes. The
// test is a plain case-sensitive suffix comparison: "html" matches
// "page.xhtml".
func MatchSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
