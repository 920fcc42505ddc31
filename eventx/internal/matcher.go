// Package internal implements channel pattern matching for eventx.
package internal

import "strings"

const (
	// Separator splits channels into segments.
	Separator = ":"
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"
	// WildcardRest matches zero or more trailing segments.
	WildcardRest = "**"
)

// Segments splits a channel or pattern.
func Segments(channel string) []string {
	return strings.Split(channel, Separator)
}

// Trie indexes subscription ids by pattern segment. Not safe for concurrent
// use; callers guard it.
type Trie struct {
	root *node
}

type node struct {
	children map[string]*node
	ids      []uint64
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// Add indexes id under pattern.
func (t *Trie) Add(pattern string, id uint64) {
	n := t.root
	for _, seg := range Segments(pattern) {
		child := n.children[seg]
		if child == nil {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	n.ids = append(n.ids, id)
}

// Remove drops id from pattern. Empty branches are pruned.
func (t *Trie) Remove(pattern string, id uint64) {
	t.remove(t.root, Segments(pattern), id)
}

func (t *Trie) remove(n *node, segs []string, id uint64) bool {
	if len(segs) == 0 {
		for i, existing := range n.ids {
			if existing == id {
				n.ids = append(n.ids[:i], n.ids[i+1:]...)
				break
			}
		}
		return len(n.ids) == 0 && len(n.children) == 0
	}

	child := n.children[segs[0]]
	if child == nil {
		return false
	}
	if t.remove(child, segs[1:], id) {
		delete(n.children, segs[0])
	}
	return len(n.ids) == 0 && len(n.children) == 0
}

// Match returns the ids of every pattern matching channel. Ids may repeat
// when a channel wildcard reaches the same pattern twice; callers dedupe.
func (t *Trie) Match(channel string) []uint64 {
	var out []uint64
	t.match(t.root, Segments(channel), &out)
	return out
}

func (t *Trie) match(n *node, segs []string, out *[]uint64) {
	if rest := n.children[WildcardRest]; rest != nil {
		*out = append(*out, rest.ids...)
	}
	if len(segs) == 0 {
		*out = append(*out, n.ids...)
		return
	}

	seg := segs[0]
	if seg == WildcardSingle {
		for key, child := range n.children {
			if key == WildcardRest {
				continue
			}
			t.match(child, segs[1:], out)
		}
		return
	}

	if child := n.children[seg]; child != nil {
		t.match(child, segs[1:], out)
	}
	if child := n.children[WildcardSingle]; child != nil {
		t.match(child, segs[1:], out)
	}
}

// Empty reports whether no pattern is indexed.
func (t *Trie) Empty() bool {
	return len(t.root.children) == 0 && len(t.root.ids) == 0
}
