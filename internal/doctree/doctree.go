// Package doctree defines the in-memory document tree shared by the parsers,
// the directive processor, and the renderer. The model is deliberately small:
// block nodes that can carry inline nodes, plus a pending Directive node that
// the builder replaces with generated blocks before rendering.
package doctree

// Block is a block-level document node.
type Block interface {
	block()
}

// Inline is an inline (phrasing) node inside a block.
type Inline interface {
	inline()
}

// Document is the root of a parsed source document.
type Document struct {
	// Source is the path of the file this document was parsed from, when
	// known. Used for error reporting and relative path resolution.
	Source string
	Blocks []Block
}

// Heading is a section heading with level 1..6.
type Heading struct {
	Level   int
	Inlines []Inline
}

// Paragraph is a run of inline content. Tight marks list-item content that
// renders without a paragraph wrapper.
type Paragraph struct {
	Inlines []Inline
	Tight   bool
}

// LiteralBlock holds preformatted text rendered without markup
// interpretation. Text is preserved byte-for-byte.
type LiteralBlock struct {
	Language string
	Text     string
}

// List is an ordered or bulleted list.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
}

// ListItem holds the blocks of one list entry.
type ListItem struct {
	Blocks []Block
}

// Table is a table with one header row and zero or more data rows.
type Table struct {
	Aligns []CellAlign
	Header TableRow
	Rows   []TableRow
}

// TableRow is one row of table cells, each holding inline content.
type TableRow struct {
	Cells [][]Inline
}

// CellAlign is the rendered alignment of a table column.
type CellAlign int

const (
	CellAlignNone CellAlign = iota
	CellAlignLeft
	CellAlignCenter
	CellAlignRight
)

// BlockQuote wraps quoted blocks.
type BlockQuote struct {
	Blocks []Block
}

// ThematicBreak is a horizontal rule / transition.
type ThematicBreak struct{}

// Directive is an unprocessed generate-include occurrence. The builder
// replaces it with the blocks produced by the directive processor.
type Directive struct {
	// Ref is the raw positional argument, e.g. "estimation.star:data_table".
	Ref string
	// Type is the raw value of the :type: option ("" means the default).
	Type string
	// Line is the 1-based source line of the directive, for error reports.
	Line int
}

// Problem marks a node whose generation failed. It renders as a visible
// error marker so broken output is never mistaken for correct output.
type Problem struct {
	Message string
	Line    int
}

func (*Heading) block()       {}
func (*Paragraph) block()     {}
func (*LiteralBlock) block()  {}
func (*List) block()          {}
func (*Table) block()         {}
func (*BlockQuote) block()    {}
func (*ThematicBreak) block() {}
func (*Directive) block()     {}
func (*Problem) block()       {}

// Text is a plain text span.
type Text struct {
	Value string
}

// Emph is emphasized (italic) content.
type Emph struct {
	Inlines []Inline
}

// Strong is strongly emphasized (bold) content.
type Strong struct {
	Inlines []Inline
}

// Code is an inline literal span.
type Code struct {
	Value string
}

// Link is a hyperlink around inline content.
type Link struct {
	URL     string
	Title   string
	Inlines []Inline
}

func (*Text) inline()   {}
func (*Emph) inline()   {}
func (*Strong) inline() {}
func (*Code) inline()   {}
func (*Link) inline()   {}

// PlainText returns the concatenated text content of inline nodes, without
// any markup.
func PlainText(inlines []Inline) string {
	var out string
	for _, in := range inlines {
		switch n := in.(type) {
		case *Text:
			out += n.Value
		case *Code:
			out += n.Value
		case *Emph:
			out += PlainText(n.Inlines)
		case *Strong:
			out += PlainText(n.Inlines)
		case *Link:
			out += PlainText(n.Inlines)
		}
	}
	return out
}

// Transform rewrites every Directive node in the document, depth first, by
// calling fn and splicing the returned blocks in place of the directive.
// Container blocks (lists, block quotes) are descended into.
func Transform(doc *Document, fn func(*Directive) []Block) {
	doc.Blocks = transformBlocks(doc.Blocks, fn)
}

func transformBlocks(blocks []Block, fn func(*Directive) []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		switch n := b.(type) {
		case *Directive:
			out = append(out, fn(n)...)
		case *List:
			for i := range n.Items {
				n.Items[i].Blocks = transformBlocks(n.Items[i].Blocks, fn)
			}
			out = append(out, n)
		case *BlockQuote:
			n.Blocks = transformBlocks(n.Blocks, fn)
			out = append(out, n)
		default:
			out = append(out, b)
		}
	}
	return out
}

// Directives collects every Directive node in document order.
func Directives(doc *Document) []*Directive {
	var found []*Directive
	var walk func([]Block)
	walk = func(blocks []Block) {
		for _, b := range blocks {
			switch n := b.(type) {
			case *Directive:
				found = append(found, n)
			case *List:
				for _, item := range n.Items {
					walk(item.Blocks)
				}
			case *BlockQuote:
				walk(n.Blocks)
			}
		}
	}
	walk(doc.Blocks)
	return found
}
