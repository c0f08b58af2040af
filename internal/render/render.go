// Package render turns a document tree into HTML. Text content is escaped;
// literal blocks keep their text byte-for-byte inside <pre><code>.
package render

import (
	"fmt"
	"html"
	"strings"

	"docweave/internal/doctree"
)

// Document renders a full standalone HTML page for the document.
func Document(doc *doctree.Document, title string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString(fmt.Sprintf("<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title)))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(Blocks(doc.Blocks))
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// Blocks renders block nodes as an HTML fragment.
func Blocks(blocks []doctree.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		writeBlock(&sb, b)
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, b doctree.Block) {
	switch n := b.(type) {
	case *doctree.Heading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		fmt.Fprintf(sb, "<h%d>%s</h%d>\n", level, inlines(n.Inlines), level)
	case *doctree.Paragraph:
		if n.Tight {
			fmt.Fprintf(sb, "%s\n", inlines(n.Inlines))
		} else {
			fmt.Fprintf(sb, "<p>%s</p>\n", inlines(n.Inlines))
		}
	case *doctree.LiteralBlock:
		class := ""
		if n.Language != "" {
			class = fmt.Sprintf(" class=\"language-%s\"", html.EscapeString(n.Language))
		}
		fmt.Fprintf(sb, "<pre><code%s>%s</code></pre>\n", class, html.EscapeString(n.Text))
	case *doctree.List:
		writeList(sb, n)
	case *doctree.Table:
		writeTable(sb, n)
	case *doctree.BlockQuote:
		sb.WriteString("<blockquote>\n")
		sb.WriteString(Blocks(n.Blocks))
		sb.WriteString("</blockquote>\n")
	case *doctree.ThematicBreak:
		sb.WriteString("<hr>\n")
	case *doctree.Problem:
		fmt.Fprintf(sb, "<div class=\"docweave-error\">%s</div>\n", html.EscapeString(n.Message))
	case *doctree.Directive:
		// Unprocessed directives should not reach the renderer; make them
		// visible rather than dropping them silently.
		fmt.Fprintf(sb, "<div class=\"docweave-error\">unprocessed directive: %s</div>\n", html.EscapeString(n.Ref))
	}
}

func writeList(sb *strings.Builder, n *doctree.List) {
	tag := "ul"
	attrs := ""
	if n.Ordered {
		tag = "ol"
		if n.Start > 1 {
			attrs = fmt.Sprintf(" start=\"%d\"", n.Start)
		}
	}
	fmt.Fprintf(sb, "<%s%s>\n", tag, attrs)
	for _, item := range n.Items {
		sb.WriteString("<li>")
		sb.WriteString(strings.TrimSuffix(Blocks(item.Blocks), "\n"))
		sb.WriteString("</li>\n")
	}
	fmt.Fprintf(sb, "</%s>\n", tag)
}

func writeTable(sb *strings.Builder, n *doctree.Table) {
	align := func(i int) string {
		if i >= len(n.Aligns) {
			return ""
		}
		switch n.Aligns[i] {
		case doctree.CellAlignLeft:
			return " align=\"left\""
		case doctree.CellAlignCenter:
			return " align=\"center\""
		case doctree.CellAlignRight:
			return " align=\"right\""
		}
		return ""
	}

	sb.WriteString("<table>\n")
	if len(n.Header.Cells) > 0 {
		sb.WriteString("<thead>\n<tr>")
		for i, cell := range n.Header.Cells {
			fmt.Fprintf(sb, "<th%s>%s</th>", align(i), inlines(cell))
		}
		sb.WriteString("</tr>\n</thead>\n")
	}
	sb.WriteString("<tbody>\n")
	for _, row := range n.Rows {
		sb.WriteString("<tr>")
		for i, cell := range row.Cells {
			fmt.Fprintf(sb, "<td%s>%s</td>", align(i), inlines(cell))
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>\n")
}

func inlines(ins []doctree.Inline) string {
	var sb strings.Builder
	for _, in := range ins {
		switch n := in.(type) {
		case *doctree.Text:
			sb.WriteString(html.EscapeString(n.Value))
		case *doctree.Code:
			fmt.Fprintf(&sb, "<code>%s</code>", html.EscapeString(n.Value))
		case *doctree.Emph:
			fmt.Fprintf(&sb, "<em>%s</em>", inlines(n.Inlines))
		case *doctree.Strong:
			fmt.Fprintf(&sb, "<strong>%s</strong>", inlines(n.Inlines))
		case *doctree.Link:
			title := ""
			if n.Title != "" {
				title = fmt.Sprintf(" title=\"%s\"", html.EscapeString(n.Title))
			}
			fmt.Fprintf(&sb, "<a href=\"%s\"%s>%s</a>", html.EscapeString(n.URL), title, inlines(n.Inlines))
		}
	}
	return sb.String()
}
