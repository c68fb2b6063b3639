package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser reads concept maps written as YAML:
//
//	lang: en
//	context: programming, ruby
//	concepts:
//	  - names: recursion
//	    tags: function, call
//	    def:
//	      - A function that calls itself
//	      - {type: file, text: img/recursion.png}
//	    table:
//	      title: calls
//	      fields: [case, result]
//	      rows: [[0, 1], [1, 1]]
//
// Section order follows key order. A sequence value repeats the section. A
// lang key on a concept overrides the file language.
type YAMLParser struct{}

func (p *YAMLParser) SupportedFormats() []string { return []string{"yaml", "yml"} }

func (p *YAMLParser) Parse(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading YAML: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding YAML %s: %w", path, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrMalformedDocument, path)
	}

	doc := &Document{Path: path, Format: "yaml", Context: []string{}}
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		switch key {
		case "lang":
			doc.Lang = strings.TrimSpace(val.Value)
		case "context":
			doc.Context = yamlList(val)
		case "concepts":
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: %s: concepts must be a list", ErrMalformedDocument, path)
			}
			for _, item := range val.Content {
				n, err := yamlConcept(item)
				if err != nil {
					return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedDocument, path, item.Line, err)
				}
				doc.Concepts = append(doc.Concepts, n)
			}
		default:
			return nil, fmt.Errorf("%w: %s: unknown key %q", ErrMalformedDocument, path, key)
		}
	}
	return doc, nil
}

// yamlList accepts either a comma-separated scalar or a sequence of scalars.
func yamlList(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		return SplitList(n.Value)
	case yaml.SequenceNode:
		out := []string{}
		for _, c := range n.Content {
			if v := strings.TrimSpace(c.Value); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return []string{}
}

// listSections take a sequence as the list itself rather than as repeated
// sections.
var listSections = map[string]bool{
	"names":   true,
	"tags":    true,
	"context": true,
}

func yamlConcept(n *yaml.Node) (*Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("concept must be a mapping")
	}
	c := &Node{Name: "concept", Attrs: map[string]string{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, val := n.Content[i].Value, n.Content[i+1]
		if name == "lang" {
			c.Attrs["lang"] = val.Value
			continue
		}
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode && !listSections[name] {
			items = val.Content
		}
		for _, item := range items {
			section, err := yamlSection(name, item)
			if err != nil {
				return nil, err
			}
			c.Children = append(c.Children, section)
		}
	}
	return c, nil
}

func yamlSection(name string, n *yaml.Node) (*Node, error) {
	s := &Node{Name: name, Attrs: map[string]string{}}
	switch n.Kind {
	case yaml.ScalarNode:
		s.Text = n.Value
	case yaml.SequenceNode:
		// list sections: names, tags, context
		s.Text = strings.Join(yamlList(n), ", ")
	case yaml.MappingNode:
		if name == "table" {
			return yamlTable(n)
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i].Value, n.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("section %q: attribute %q must be a scalar", name, k)
			}
			if k == "text" {
				s.Text = v.Value
			} else {
				s.Attrs[k] = v.Value
			}
		}
	default:
		return nil, fmt.Errorf("section %q: unsupported value", name)
	}
	return s, nil
}

func yamlTable(n *yaml.Node) (*Node, error) {
	t := &Node{Name: "table", Attrs: map[string]string{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i].Value, n.Content[i+1]
		switch k {
		case "title":
			t.Children = append(t.Children, &Node{Name: "title", Text: v.Value})
		case "fields", "sequence":
			t.Attrs[k] = strings.Join(yamlList(v), ", ")
		case "rows":
			if v.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("table rows must be a list")
			}
			for _, r := range v.Content {
				row := &Node{Name: "row"}
				if r.Kind == yaml.SequenceNode {
					for _, col := range r.Content {
						row.Children = append(row.Children, &Node{Name: "col", Text: col.Value})
					}
				} else {
					row.Text = r.Value
				}
				t.Children = append(t.Children, row)
			}
		default:
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("table attribute %q must be a scalar", k)
			}
			t.Attrs[k] = v.Value
		}
	}
	return t, nil
}
