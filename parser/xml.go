package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// XMLParser reads concept maps written as XML:
//
//	<map lang="en" context="programming, ruby">
//	  <concept>
//	    <names>recursion</names>
//	    <tags>function, call</tags>
//	    <def>A function that calls itself</def>
//	  </concept>
//	</map>
type XMLParser struct{}

func (p *XMLParser) SupportedFormats() []string { return []string{"xml"} }

func (p *XMLParser) Parse(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening XML: %w", err)
	}
	defer f.Close()

	root, err := decodeXMLTree(f)
	if err != nil {
		return nil, fmt.Errorf("decoding XML %s: %w", path, err)
	}
	if root == nil || root.Name != "map" {
		return nil, fmt.Errorf("%w: %s: root element must be <map>", ErrMalformedDocument, path)
	}

	doc := &Document{Path: path, Format: "xml", Context: []string{}}
	doc.Lang, _ = root.Attr("lang")
	if v, ok := root.Attr("context"); ok {
		doc.Context = SplitList(v)
	}

	for _, child := range root.Children {
		if child.Name != "concept" {
			return nil, fmt.Errorf("%w: %s: unexpected <%s> inside <map>", ErrMalformedDocument, path, child.Name)
		}
		doc.Concepts = append(doc.Concepts, child)
	}
	return doc, nil
}

// decodeXMLTree reads the whole stream into a generic Node tree and returns
// the root element.
func decodeXMLTree(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	return root, nil
}
