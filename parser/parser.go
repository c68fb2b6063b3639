package parser

import (
	"context"
	"strings"
)

// Document is a decoded definition file: the map-level defaults plus one node
// per concept definition, in file order.
type Document struct {
	Path     string
	Format   string
	Lang     string   // default language code for the concepts in this file
	Context  []string // context inherited by every concept in this file
	Concepts []*Node
}

// Node is one element of a definition tree. Concept nodes hold section
// children (names, tags, def, table); table nodes hold title and row
// children, and rows hold col children.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Attr returns the trimmed value of attribute key.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.Attrs[key]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// ChildrenNamed returns the direct children called name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Parser decodes a definition file format.
type Parser interface {
	Parse(ctx context.Context, path string) (*Document, error)
	SupportedFormats() []string
}

// SplitList splits a comma-separated list, trims every item and drops empty
// ones. It never returns nil.
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
