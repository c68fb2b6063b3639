// Package table builds the tables embedded in concept definitions. Rows are
// either written inline or imported from a sheet of an .xlsx workbook.
package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/conceptgraph/concept"
	"github.com/brunobiangulo/conceptgraph/parser"
)

var (
	// ErrEmptyTable is returned for a table with neither fields nor rows.
	ErrEmptyTable = errors.New("table: no fields and no rows")

	// ErrRowWidth is returned when a row does not have one value per field.
	ErrRowWidth = errors.New("table: row width does not match fields")

	// ErrUnknownElement is returned for table children other than title and row.
	ErrUnknownElement = errors.New("table: unknown element")
)

// Table is a small grid of facts about a concept, e.g. the attributes of a
// data type. Tables are compared across concepts by Key.
type Table struct {
	Owner    string     `json:"owner"`
	Title    string     `json:"title,omitempty"`
	Fields   []string   `json:"fields"`
	Sequence []string   `json:"sequence,omitempty"`
	Rows     [][]string `json:"rows"`
	Source   string     `json:"source,omitempty"` // workbook path for imported tables
}

var _ concept.Table = (*Table)(nil)

// Key identifies the table shape: its title and field names, lower-cased.
// Two concepts describing the same kind of table share a key.
func (t *Table) Key() string {
	return strings.ToLower(t.Title) + "|" + strings.ToLower(strings.Join(t.Fields, ","))
}

// Builder builds tables from definition nodes.
type Builder struct{}

// NewBuilder creates a table builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build reads a table node. Attributes: fields, sequence, title, and file/sheet
// for workbook imports (relative to the owner's definition file). Children:
// <title> and <row>, where a row holds <col> values or a single text value.
func (b *Builder) Build(owner *concept.Concept, node *parser.Node) (concept.Table, error) {
	t := &Table{Owner: owner.Name()}
	if v, ok := node.Attr("fields"); ok {
		t.Fields = parser.SplitList(v)
	}
	if v, ok := node.Attr("sequence"); ok {
		t.Sequence = parser.SplitList(v)
	}
	t.Title, _ = node.Attr("title")

	for _, child := range node.Children {
		switch child.Name {
		case "title":
			t.Title = strings.TrimSpace(child.Text)
		case "row":
			t.Rows = append(t.Rows, rowValues(child))
		default:
			return nil, fmt.Errorf("%w: <%s>", ErrUnknownElement, child.Name)
		}
	}

	if file, ok := node.Attr("file"); ok && file != "" {
		sheet, _ := node.Attr("sheet")
		if err := t.importSheet(filepath.Dir(owner.Filename), file, sheet); err != nil {
			return nil, err
		}
	}

	if len(t.Fields) == 0 && len(t.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	width := len(t.Fields)
	if width == 0 {
		width = len(t.Rows[0])
	}
	for i, row := range t.Rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRowWidth, i+1, len(row), width)
		}
	}
	return t, nil
}

func rowValues(row *parser.Node) []string {
	cols := row.ChildrenNamed("col")
	if len(cols) == 0 {
		return []string{strings.TrimSpace(row.Text)}
	}
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = strings.TrimSpace(c.Text)
	}
	return values
}

// importSheet appends the rows of a workbook sheet. When the table declares
// no fields, the first sheet row supplies them.
func (t *Table) importSheet(baseDir, file, sheet string) error {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return fmt.Errorf("no sheets in %s", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	for _, row := range rows {
		values := make([]string, 0, len(row))
		for _, v := range row {
			values = append(values, strings.TrimSpace(v))
		}
		if isBlank(values) {
			continue
		}
		if len(t.Fields) == 0 {
			t.Fields = values
			continue
		}
		// GetRows drops trailing empty cells.
		for len(values) < len(t.Fields) {
			values = append(values, "")
		}
		t.Rows = append(t.Rows, values)
	}

	if t.Title == "" {
		t.Title = sheet
	}
	t.Source = path
	return nil
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
