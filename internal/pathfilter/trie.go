// Package pathfilter implements the ordered include/ignore path classifier
// used by the sync engine to decide which files in a source tree to parse.
package pathfilter

import (
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Flag is the classification a trie node (or a whole path) can carry.
type Flag int

const (
	None Flag = iota
	Ignore
	Include
)

type node struct {
	children map[string]*node
	flag     Flag
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Trie is a segment-indexed tree of include/ignore rules. The deepest node
// with a non-empty flag along the walk always applies, regardless of what
// shallower nodes were set to: a deeper IGNORE overrides a shallower
// INCLUDE just as readily as the reverse.
//
// A Trie also carries a set of glob rules (any rule containing "*" or "?",
// e.g. "**/*_test.go") matched against the whole path with doublestar.
// Globs are evaluated first; a flagged literal node found along the segment
// walk then replaces the glob result.
type Trie struct {
	mu    sync.RWMutex
	root  *node
	globs []globRule
}

type globRule struct {
	pattern string
	flag    Flag
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert registers a rule for path under the given flag. Segments "." and
// empty segments are skipped, and backslashes are treated as "/", so Insert
// always returns nil.
func (t *Trie) Insert(path string, flag Flag) error {
	if strings.Contains(path, "*") || strings.Contains(path, "?") {
		t.mu.Lock()
		t.globs = append(t.globs, globRule{pattern: path, flag: flag})
		t.mu.Unlock()
		return nil
	}

	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.root
	for _, seg := range segs {
		child, ok := cur.children[seg]
		if !ok {
			child = newNode()
			cur.children[seg] = child
		}
		cur = child
	}
	// INCLUDE overrides IGNORE at the same node; IGNORE never overwrites an
	// existing INCLUDE.
	if flag == Include || cur.flag == None {
		cur.flag = flag
	}
	return nil
}

// Classify returns the effective flag for path: the deepest matching node's
// flag, falling back to the last observed flag if the walk runs out of
// children before the path does. Glob rules are checked first (INCLUDE wins
// among matching globs); any flagged literal node on the walk then replaces
// the glob result, so a glob decides only when no literal rule along the
// path's segments carries a flag.
func (t *Trie) Classify(path string) Flag {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := None
	for _, g := range t.globs {
		if ok, _ := doublestar.Match(g.pattern, path); ok {
			if g.flag == Include || result == None {
				result = g.flag
			}
		}
	}

	segs, err := splitPath(path)
	if err != nil {
		return result
	}

	cur := t.root
	for _, seg := range segs {
		child, ok := cur.children[seg]
		if !ok {
			break
		}
		cur = child
		if cur.flag != None {
			result = cur.flag
		}
	}
	return result
}

// splitPath normalizes a path into trie segments, dropping "." and empty
// segments. Because it splits on "/" after normalizing backslashes, no
// returned segment can itself contain a separator.
func splitPath(path string) ([]string, error) {
	path = strings.ReplaceAll(path, "\\", "/")
	parts := strings.Split(path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segs = append(segs, p)
	}
	return segs, nil
}

// BuildFromRules constructs a trie the way the Sync Engine does: ignore
// rules first, then include rules, so a later, more specific include can
// still win at lookup time regardless of insertion order within each group.
func BuildFromRules(ignored, included []string) *Trie {
	t := New()
	for _, p := range ignored {
		_ = t.Insert(p, Ignore)
	}
	for _, p := range included {
		_ = t.Insert(p, Include)
	}
	return t
}
