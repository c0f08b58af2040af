// Package mdfmt provides small Markdown formatting helpers for use inside
// generator functions: tables, headers, nested lists, and links. All
// functions are pure and return the rendered Markdown as a string.
package mdfmt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Sentinel errors for programmatic error handling.
var (
	ErrInvalidAlignment = errors.New("invalid alignment specifier")
	ErrRaggedRow        = errors.New("row length does not match header length")
)

// Alignment specifies column alignment in a Markdown table.
type Alignment string

const (
	AlignLeft   Alignment = "l"
	AlignRight  Alignment = "r"
	AlignCenter Alignment = "c"
)

// ParseAlignment parses a single-letter alignment specifier.
func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(s) {
	case AlignLeft, AlignRight, AlignCenter:
		return Alignment(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlignment, s)
}

// alignmentSpecifier renders the delimiter-row cell for one column. The cell
// is sized to the header width so the source stays readable.
func alignmentSpecifier(align Alignment, width int) (string, error) {
	switch align {
	case AlignLeft:
		return ":" + strings.Repeat("-", max(width-1, 1)), nil
	case AlignRight:
		return strings.Repeat("-", max(width-1, 1)) + ":", nil
	case AlignCenter:
		return ":" + strings.Repeat("-", max(width-2, 1)) + ":", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlignment, string(align))
}

// Table renders a Markdown table. alignment may be empty (all columns left
// aligned), hold a single element applied to every column, or hold one
// element per column. Every row must have exactly len(headers) cells.
func Table(headers []string, rows [][]string, alignment ...Alignment) (string, error) {
	if len(headers) == 0 {
		return "", errors.New("table requires at least one header")
	}

	aligns := make([]Alignment, len(headers))
	switch len(alignment) {
	case 0:
		for i := range aligns {
			aligns[i] = AlignLeft
		}
	case 1:
		for i := range aligns {
			aligns[i] = alignment[0]
		}
	case len(headers):
		copy(aligns, alignment)
	default:
		return "", fmt.Errorf("got %d alignment specifiers for %d columns", len(alignment), len(headers))
	}

	for _, row := range rows {
		if len(row) != len(headers) {
			return "", fmt.Errorf("%w: %d cells, %d headers", ErrRaggedRow, len(row), len(headers))
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}

	writeRow(headers)

	specs := make([]string, len(headers))
	for i, h := range headers {
		spec, err := alignmentSpecifier(aligns[i], runewidth.StringWidth(h))
		if err != nil {
			return "", err
		}
		specs[i] = spec
	}
	writeRow(specs)

	for _, row := range rows {
		writeRow(row)
	}
	return sb.String(), nil
}

// Header renders an ATX Markdown header. Levels below 1 are clamped to 1.
func Header(text string, level int) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// ListItem is one entry of a possibly nested Markdown list. Children render
// one level deeper than their parent.
type ListItem struct {
	Text     string
	Children []ListItem
}

// Items builds a flat slice of list items from plain strings.
func Items(texts ...string) []ListItem {
	items := make([]ListItem, len(texts))
	for i, t := range texts {
		items[i] = ListItem{Text: t}
	}
	return items
}

func renderList(sb *strings.Builder, items []ListItem, ordered bool, level int) {
	prefix := "- "
	if ordered {
		prefix = "1. "
	}
	indent := strings.Repeat(" ", level*len(prefix))
	for _, item := range items {
		sb.WriteString(indent)
		sb.WriteString(prefix)
		sb.WriteString(item.Text)
		sb.WriteString("\n")
		renderList(sb, item.Children, ordered, level+1)
	}
}

// OrderedList renders a numbered Markdown list. Nesting is reflected as
// indentation; Markdown renderers renumber "1." items automatically.
func OrderedList(items []ListItem) string {
	var sb strings.Builder
	renderList(&sb, items, true, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

// UnorderedList renders a bulleted Markdown list.
func UnorderedList(items []ListItem) string {
	var sb strings.Builder
	renderList(&sb, items, false, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

// Link renders a Markdown link. An empty text defaults to the URL itself.
func Link(url, text string) string {
	if text == "" {
		text = url
	}
	return fmt.Sprintf("[%s](%s)", text, url)
}
