// Package markdown parses Markdown sources into the docweave document tree.
// Parsing is delegated to goldmark (with GFM tables enabled); this package
// only maps the goldmark AST onto doctree nodes and recognizes the
// generate-include directive, written as a MyST-style fenced block:
//
//	```{generate-include} path/to/file.star:function_name
//	:type: literal
//	```
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"docweave/internal/doctree"
)

// DirectiveName is the fence info prefix that marks a generate-include block.
const DirectiveName = "{generate-include}"

// Parser converts Markdown into doctree documents. Safe to reuse across
// documents; goldmark parsers are stateless between Parse calls.
type Parser struct {
	md goldmark.Markdown
}

// New returns a Markdown parser with GFM tables enabled.
func New() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Parse converts source into a document tree. name is recorded as the
// document's source path for error reporting.
func (p *Parser) Parse(source []byte, name string) *doctree.Document {
	root := p.md.Parser().Parse(text.NewReader(source))
	return &doctree.Document{
		Source: name,
		Blocks: convertBlocks(root, source),
	}
}

func convertBlocks(parent ast.Node, source []byte) []doctree.Block {
	var blocks []doctree.Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := convertBlock(n, source); b != nil {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func convertBlock(n ast.Node, source []byte) doctree.Block {
	switch n := n.(type) {
	case *ast.Heading:
		return &doctree.Heading{Level: n.Level, Inlines: convertInlines(n, source)}
	case *ast.Paragraph:
		return &doctree.Paragraph{Inlines: convertInlines(n, source)}
	case *ast.TextBlock:
		// Tight list item content.
		return &doctree.Paragraph{Inlines: convertInlines(n, source), Tight: true}
	case *ast.FencedCodeBlock:
		info := ""
		if n.Info != nil {
			info = string(n.Info.Segment.Value(source))
		}
		if arg, ok := strings.CutPrefix(info, DirectiveName); ok {
			return directiveBlock(n, source, strings.TrimSpace(arg))
		}
		return &doctree.LiteralBlock{
			Language: firstWord(info),
			Text:     blockLines(n, source),
		}
	case *ast.CodeBlock:
		return &doctree.LiteralBlock{Text: blockLines(n, source)}
	case *ast.List:
		list := &doctree.List{Ordered: n.IsOrdered(), Start: n.Start}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			list.Items = append(list.Items, doctree.ListItem{
				Blocks: convertBlocks(item, source),
			})
		}
		return list
	case *ast.Blockquote:
		return &doctree.BlockQuote{Blocks: convertBlocks(n, source)}
	case *ast.ThematicBreak:
		return &doctree.ThematicBreak{}
	case *ast.HTMLBlock:
		return &doctree.LiteralBlock{Language: "html", Text: blockLines(n, source)}
	case *east.Table:
		return convertTable(n, source)
	default:
		return nil
	}
}

// directiveBlock builds a Directive node from a generate-include fence. The
// fence body may carry :key: value option lines; only :type: is recognized,
// unknown options are ignored.
func directiveBlock(n *ast.FencedCodeBlock, source []byte, arg string) doctree.Block {
	d := &doctree.Directive{Ref: arg, Line: lineOf(source, n.Info.Segment.Start)}
	for _, line := range strings.Split(blockLines(n, source), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, ":") {
			continue
		}
		key, value, ok := strings.Cut(line[1:], ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "type" {
			d.Type = strings.TrimSpace(value)
		}
	}
	return d
}

func convertTable(n *east.Table, source []byte) doctree.Block {
	tbl := &doctree.Table{}
	for _, a := range n.Alignments {
		tbl.Aligns = append(tbl.Aligns, cellAlign(a))
	}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells [][]doctree.Inline
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, convertInlines(cell, source))
		}
		if _, ok := row.(*east.TableHeader); ok {
			tbl.Header = doctree.TableRow{Cells: cells}
		} else {
			tbl.Rows = append(tbl.Rows, doctree.TableRow{Cells: cells})
		}
	}
	return tbl
}

func cellAlign(a east.Alignment) doctree.CellAlign {
	switch a {
	case east.AlignLeft:
		return doctree.CellAlignLeft
	case east.AlignCenter:
		return doctree.CellAlignCenter
	case east.AlignRight:
		return doctree.CellAlignRight
	default:
		return doctree.CellAlignNone
	}
}

func convertInlines(parent ast.Node, source []byte) []doctree.Inline {
	var inlines []doctree.Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			value := string(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				value += "\n"
			}
			inlines = append(inlines, &doctree.Text{Value: value})
		case *ast.String:
			inlines = append(inlines, &doctree.Text{Value: string(n.Value)})
		case *ast.CodeSpan:
			inlines = append(inlines, &doctree.Code{Value: literalText(n, source)})
		case *ast.Emphasis:
			children := convertInlines(n, source)
			if n.Level >= 2 {
				inlines = append(inlines, &doctree.Strong{Inlines: children})
			} else {
				inlines = append(inlines, &doctree.Emph{Inlines: children})
			}
		case *ast.Link:
			inlines = append(inlines, &doctree.Link{
				URL:     string(n.Destination),
				Title:   string(n.Title),
				Inlines: convertInlines(n, source),
			})
		case *ast.AutoLink:
			url := string(n.URL(source))
			inlines = append(inlines, &doctree.Link{
				URL:     url,
				Inlines: []doctree.Inline{&doctree.Text{Value: string(n.Label(source))}},
			})
		case *ast.Image:
			inlines = append(inlines, &doctree.Link{
				URL:     string(n.Destination),
				Inlines: convertInlines(n, source),
			})
		default:
			inlines = append(inlines, &doctree.Text{Value: literalText(n, source)})
		}
	}
	return inlines
}

// literalText concatenates the raw text segments beneath a node.
func literalText(parent ast.Node, source []byte) string {
	var sb strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(source))
		case *ast.String:
			sb.Write(n.Value)
		default:
			sb.WriteString(literalText(n, source))
		}
	}
	return sb.String()
}

// blockLines joins the raw source lines of a block node. The trailing
// newline of the final line is kept as written.
func blockLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

// lineOf returns the 1-based line number of a byte offset in source.
func lineOf(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return 1 + bytes.Count(source[:offset], []byte{'\n'})
}
