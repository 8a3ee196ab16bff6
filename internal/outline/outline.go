// Package outline rebuilds a heading tree from raw LaTeX source.
//
// The extractor is a pure function over the document text: every call
// discards the previous tree and produces a fresh one. It performs no
// validation of canonical nesting; a heading attaches to the most recent
// node one level up, or to the virtual root when none exists.
package outline

import (
	"fmt"
	"regexp"
	"strings"
)

// Node is one heading in the document outline. Depth 1 is the outermost
// configured heading kind; the virtual root has depth 0 and an empty title.
type Node struct {
	Title    string  `json:"title"`
	Line     int     `json:"line"` // 1-based source line, for editor navigation
	Depth    int     `json:"depth"`
	Children []*Node `json:"children,omitempty"`
}

// Extractor scans document text for sectioning commands and builds the tree.
type Extractor struct {
	kinds   []string
	pattern *regexp.Regexp
}

var kindRe = regexp.MustCompile(`^[a-zA-Z]+$`)

// NewExtractor builds an extractor for the given ordered heading kinds,
// outermost first. The Nth kind maps to depth N.
func NewExtractor(kinds []string) (*Extractor, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("outline: at least one heading kind is required")
	}
	for _, k := range kinds {
		if !kindRe.MatchString(k) {
			return nil, fmt.Errorf("outline: invalid heading kind %q", k)
		}
	}

	// Matches e.g. `  \section*{Title}`: optional leading whitespace, the
	// command (optionally starred), then the title up to the first closing
	// brace (non-greedy).
	pattern, err := regexp.Compile(`^\s*\\(` + strings.Join(kinds, "|") + `)\*?\{(.*?)\}`)
	if err != nil {
		return nil, fmt.Errorf("outline: compile heading pattern: %w", err)
	}

	return &Extractor{
		kinds:   append([]string(nil), kinds...),
		pattern: pattern,
	}, nil
}

// Kinds returns the configured heading kinds, outermost first.
func (e *Extractor) Kinds() []string {
	return append([]string(nil), e.kinds...)
}

// Extract parses the document text and returns the virtual root node.
//
// Non-matching lines are skipped. The parent of a depth-d heading is the
// most recent heading at depth d-1, or the root when none has occurred yet.
// Stale entries at deeper levels are not cleared; they are simply superseded
// by later matches at their own depth.
func (e *Extractor) Extract(text string) *Node {
	root := &Node{}
	latest := make([]*Node, len(e.kinds)+1)
	latest[0] = root

	for i, line := range strings.Split(text, "\n") {
		m := e.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		depth := e.depthOf(m[1])
		node := &Node{Title: m[2], Line: i + 1, Depth: depth}

		parent := latest[depth-1]
		if parent == nil {
			parent = root
		}
		parent.Children = append(parent.Children, node)
		latest[depth] = node
	}

	return root
}

func (e *Extractor) depthOf(kind string) int {
	for i, k := range e.kinds {
		if k == kind {
			return i + 1
		}
	}
	// Unreachable: the pattern only matches configured kinds.
	return len(e.kinds)
}

// Count returns the number of headings in the tree rooted at n, excluding
// the virtual root itself.
func (n *Node) Count() int {
	total := 0
	for _, c := range n.Children {
		total += 1 + c.Count()
	}
	return total
}

// Walk visits every heading in document order, depth first.
func (n *Node) Walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.Walk(fn)
	}
}
