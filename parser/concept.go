package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/brunobiangulo/conceptgraph/concept"
	"github.com/brunobiangulo/conceptgraph/lang"
	"github.com/brunobiangulo/conceptgraph/media"
)

// LanguageResolver maps a locale code to a shared language handle.
type LanguageResolver interface {
	Resolve(code string) (*lang.Language, error)
}

// MediaLoader loads a file or URL referenced by a def section. baseDir is the
// directory of the definition file.
type MediaLoader interface {
	Load(ctx context.Context, pathOrURL, baseDir string) (media.Ref, error)
}

// TableBuilder builds a table section for its owning concept.
type TableBuilder interface {
	Build(owner *concept.Concept, node *Node) (concept.Table, error)
}

// Def types accepted in the type attribute of a def section.
const (
	DefFile     = "file"
	DefImageURL = "image_url"
)

// ConceptParser turns concept definition nodes into Concepts.
type ConceptParser struct {
	registry *concept.Registry
	langs    LanguageResolver
	media    MediaLoader
	tables   TableBuilder
}

// NewConceptParser creates a parser that allocates identifiers from registry.
func NewConceptParser(registry *concept.Registry, langs LanguageResolver, media MediaLoader, tables TableBuilder) *ConceptParser {
	return &ConceptParser{
		registry: registry,
		langs:    langs,
		media:    media,
		tables:   tables,
	}
}

// Parse builds one concept from node. inherited is the context of the
// enclosing document; use SplitList for comma-separated contexts. Any error
// is a *ParseError and no concept is returned.
func (p *ConceptParser) Parse(ctx context.Context, node *Node, filename, langCode string, inherited []string) (*concept.Concept, error) {
	id := p.registry.Next()

	if v, ok := node.Attr("lang"); ok && v != "" {
		langCode = v
	}
	language, err := p.langs.Resolve(langCode)
	if err != nil {
		conceptsParsed.WithLabelValues("error").Inc()
		return nil, &ParseError{File: filename, Concept: fmt.Sprintf("concept.%d", id), Err: err}
	}

	c := concept.New(id, filename, language, slices.Clone(inherited))
	for _, section := range node.Children {
		if err := p.applySection(ctx, c, section); err != nil {
			conceptsParsed.WithLabelValues("error").Inc()
			return nil, &ParseError{File: filename, Concept: c.Name(), Section: section.Name, Err: err}
		}
	}

	conceptsParsed.WithLabelValues("ok").Inc()
	slog.Debug("parser: concept loaded",
		"id", c.ID, "name", c.Name(), "file", filename,
		"tags", len(c.Tags), "texts", len(c.Texts), "images", len(c.Images), "tables", len(c.Tables))
	return c, nil
}

func (p *ConceptParser) applySection(ctx context.Context, c *concept.Concept, s *Node) error {
	switch s.Name {
	case "names":
		if names := SplitList(s.Text); len(names) > 0 {
			c.Names = names
		}
		if kind, ok := s.Attr("type"); ok && kind != "" {
			c.Kind = kind
		}
	case "tags":
		tags := SplitList(s.Text)
		if len(tags) == 0 {
			return ErrEmptyTags
		}
		c.Tags = tags
	case "context":
		c.Context = SplitList(s.Text)
	case "def":
		return p.applyDef(ctx, c, s)
	case "table":
		t, err := p.tables.Build(c, s)
		if err != nil {
			return err
		}
		c.Tables = append(c.Tables, t)
	default:
		return ErrUnknownSection
	}
	return nil
}

func (p *ConceptParser) applyDef(ctx context.Context, c *concept.Concept, s *Node) error {
	defType, hasType := s.Attr("type")
	if !hasType {
		c.Texts = append(c.Texts, strings.TrimSpace(s.Text))
		return nil
	}

	switch defType {
	case DefFile, DefImageURL:
		ref, err := p.media.Load(ctx, strings.TrimSpace(s.Text), filepath.Dir(c.Filename))
		if err != nil {
			return err
		}
		c.Images = append(c.Images, ref)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDefType, defType)
	}
}
