// Package rst parses a practical subset of reStructuredText into the
// docweave document tree: section titles with adornment underlines,
// paragraphs, bullet and enumerated lists, literal blocks, transitions,
// comments, and the explicit directive form
//
//	.. generate-include:: path/to/file.star:function_name
//	   :type: rst
//
// Inline markup is limited to **strong**, *emphasis*, and ``literals``.
// Section levels follow docutils: each adornment character is assigned the
// next deeper level the first time it appears in a document.
package rst

import (
	"regexp"
	"strings"

	"docweave/internal/doctree"
)

// DirectiveName is the explicit markup name of the generate-include block.
const DirectiveName = "generate-include"

const adornmentChars = "=-~^\"'`:+#*_."

var (
	explicitRe   = regexp.MustCompile(`^\.\. +([A-Za-z0-9][A-Za-z0-9_-]*):: *(.*)$`)
	optionRe     = regexp.MustCompile(`^:([A-Za-z0-9_-]+): *(.*)$`)
	enumeratedRe = regexp.MustCompile(`^(\d+|#)[.)] +(.*)$`)
)

// Parser converts reStructuredText into doctree documents. Stateless; safe
// to reuse across documents.
type Parser struct{}

// New returns a reStructuredText parser.
func New() *Parser { return &Parser{} }

// Parse converts source into a document tree. name is recorded as the
// document's source path for error reporting.
func (p *Parser) Parse(source []byte, name string) *doctree.Document {
	st := &state{
		lines:  splitLines(string(source)),
		levels: map[byte]int{},
	}
	return &doctree.Document{Source: name, Blocks: st.parseBlocks()}
}

type state struct {
	lines  []string
	i      int
	levels map[byte]int
}

func (s *state) parseBlocks() []doctree.Block {
	var blocks []doctree.Block
	for s.i < len(s.lines) {
		line := s.lines[s.i]
		trimmed := strings.TrimRight(line, " \t")

		if trimmed == "" {
			s.i++
			continue
		}

		// Explicit markup: directive or comment.
		if strings.HasPrefix(trimmed, "..") && (trimmed == ".." || strings.HasPrefix(trimmed, ".. ")) {
			if b := s.parseExplicit(trimmed); b != nil {
				blocks = append(blocks, b)
			}
			continue
		}

		// Transition: an adornment-only line not underlining a title.
		if isAdornmentLine(trimmed) != 0 && s.nextLineBlank() {
			blocks = append(blocks, &doctree.ThematicBreak{})
			s.i++
			continue
		}

		// Section title: text underlined by an adornment line.
		if !strings.HasPrefix(line, " ") && s.i+1 < len(s.lines) {
			under := strings.TrimRight(s.lines[s.i+1], " \t")
			if ch := isAdornmentLine(under); ch != 0 && len(under) >= len(trimmed) {
				blocks = append(blocks, &doctree.Heading{
					Level:   s.level(ch),
					Inlines: parseInlines(trimmed),
				})
				s.i += 2
				continue
			}
		}

		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
			blocks = append(blocks, s.parseBulletList(trimmed[:1]))
			continue
		}

		if m := enumeratedRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, s.parseEnumeratedList())
			continue
		}

		blocks = append(blocks, s.parseParagraph()...)
	}
	return blocks
}

// parseExplicit consumes one explicit markup block. Directives other than
// generate-include, and plain comments, are consumed without output.
func (s *state) parseExplicit(line string) doctree.Block {
	startLine := s.i + 1
	m := explicitRe.FindStringSubmatch(line)
	s.i++
	body := s.consumeIndented()
	if m == nil || m[1] != DirectiveName {
		return nil
	}
	d := &doctree.Directive{Ref: strings.TrimSpace(m[2]), Line: startLine}
	for _, opt := range body {
		if om := optionRe.FindStringSubmatch(strings.TrimSpace(opt)); om != nil && om[1] == "type" {
			d.Type = strings.TrimSpace(om[2])
		}
	}
	return d
}

// consumeIndented collects the indented lines following the current
// position, skipping over interior blank lines, and returns them dedented.
func (s *state) consumeIndented() []string {
	var raw []string
	for s.i < len(s.lines) {
		line := s.lines[s.i]
		if strings.TrimSpace(line) == "" {
			// A blank line ends the block unless more indented text follows.
			j := s.i + 1
			for j < len(s.lines) && strings.TrimSpace(s.lines[j]) == "" {
				j++
			}
			if j < len(s.lines) && isIndented(s.lines[j]) {
				for k := s.i; k < j; k++ {
					raw = append(raw, "")
				}
				s.i = j
				continue
			}
			break
		}
		if !isIndented(line) {
			break
		}
		raw = append(raw, line)
		s.i++
	}
	return dedent(raw)
}

func (s *state) parseBulletList(marker string) doctree.Block {
	list := &doctree.List{}
	prefix := marker + " "
	for s.i < len(s.lines) {
		trimmed := strings.TrimRight(s.lines[s.i], " \t")
		if !strings.HasPrefix(trimmed, prefix) {
			if strings.TrimSpace(trimmed) == "" && s.i+1 < len(s.lines) &&
				strings.HasPrefix(strings.TrimRight(s.lines[s.i+1], " \t"), prefix) {
				s.i++
				continue
			}
			break
		}
		text := trimmed[len(prefix):]
		s.i++
		for _, cont := range s.consumeIndented() {
			if cont != "" {
				text += "\n" + cont
			}
		}
		list.Items = append(list.Items, doctree.ListItem{
			Blocks: []doctree.Block{&doctree.Paragraph{Inlines: parseInlines(text), Tight: true}},
		})
	}
	return list
}

func (s *state) parseEnumeratedList() doctree.Block {
	list := &doctree.List{Ordered: true, Start: 1}
	first := true
	for s.i < len(s.lines) {
		trimmed := strings.TrimRight(s.lines[s.i], " \t")
		m := enumeratedRe.FindStringSubmatch(trimmed)
		if m == nil {
			if strings.TrimSpace(trimmed) == "" && s.i+1 < len(s.lines) &&
				enumeratedRe.MatchString(strings.TrimRight(s.lines[s.i+1], " \t")) {
				s.i++
				continue
			}
			break
		}
		if first && m[1] != "#" {
			list.Start = atoiDefault(m[1], 1)
			first = false
		}
		text := m[2]
		s.i++
		for _, cont := range s.consumeIndented() {
			if cont != "" {
				text += "\n" + cont
			}
		}
		list.Items = append(list.Items, doctree.ListItem{
			Blocks: []doctree.Block{&doctree.Paragraph{Inlines: parseInlines(text), Tight: true}},
		})
	}
	return list
}

// parseParagraph consumes a paragraph and, when it ends with the "::"
// literal block marker, the indented literal block that follows.
func (s *state) parseParagraph() []doctree.Block {
	var para []string
	for s.i < len(s.lines) {
		trimmed := strings.TrimRight(s.lines[s.i], " \t")
		if trimmed == "" || strings.HasPrefix(s.lines[s.i], " ") {
			break
		}
		para = append(para, trimmed)
		s.i++
	}
	text := strings.Join(para, "\n")

	if !strings.HasSuffix(text, "::") {
		return []doctree.Block{&doctree.Paragraph{Inlines: parseInlines(text)}}
	}

	// docutils rules: "text::" keeps "text:", "text ::" keeps "text",
	// and a lone "::" produces no paragraph at all.
	var blocks []doctree.Block
	switch head := strings.TrimSuffix(text, "::"); {
	case strings.TrimSpace(head) == "":
	case strings.HasSuffix(head, " "):
		blocks = append(blocks, &doctree.Paragraph{Inlines: parseInlines(strings.TrimRight(head, " "))})
	default:
		blocks = append(blocks, &doctree.Paragraph{Inlines: parseInlines(head + ":")})
	}

	for s.i < len(s.lines) && strings.TrimSpace(s.lines[s.i]) == "" {
		s.i++
	}
	lit := s.consumeIndented()
	if len(lit) > 0 {
		blocks = append(blocks, &doctree.LiteralBlock{Text: strings.Join(lit, "\n") + "\n"})
	}
	return blocks
}

// level returns the section level for an adornment character, assigning the
// next deeper level on first use.
func (s *state) level(ch byte) int {
	if lv, ok := s.levels[ch]; ok {
		return lv
	}
	lv := len(s.levels) + 1
	s.levels[ch] = lv
	return lv
}

func (s *state) nextLineBlank() bool {
	if s.i+1 >= len(s.lines) {
		return true
	}
	return strings.TrimSpace(s.lines[s.i+1]) == ""
}

// isAdornmentLine reports the adornment character when the line consists of
// four or more repetitions of one adornment rune, and 0 otherwise.
func isAdornmentLine(line string) byte {
	if len(line) < 4 {
		return 0
	}
	ch := line[0]
	if !strings.ContainsRune(adornmentChars, rune(ch)) {
		return 0
	}
	for i := 1; i < len(line); i++ {
		if line[i] != ch {
			return 0
		}
	}
	return ch
}

// splitLines splits on newlines, dropping the carriage returns of
// CRLF-terminated sources.
func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

func dedent(lines []string) []string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= indent {
			out[i] = l[indent:]
		}
	}
	return out
}

func atoiDefault(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return def
	}
	return n
}

// parseInlines scans a text run for the supported inline markup.
func parseInlines(s string) []doctree.Inline {
	var out []doctree.Inline
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, &doctree.Text{Value: plain.String()})
			plain.Reset()
		}
	}
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "``"):
			if end := strings.Index(s[i+2:], "``"); end > 0 {
				flush()
				out = append(out, &doctree.Code{Value: s[i+2 : i+2+end]})
				i += end + 4
				continue
			}
		case strings.HasPrefix(s[i:], "**"):
			if end := strings.Index(s[i+2:], "**"); end > 0 {
				flush()
				out = append(out, &doctree.Strong{Inlines: []doctree.Inline{&doctree.Text{Value: s[i+2 : i+2+end]}}})
				i += end + 4
				continue
			}
		case s[i] == '*':
			if end := strings.Index(s[i+1:], "*"); end > 0 {
				flush()
				out = append(out, &doctree.Emph{Inlines: []doctree.Inline{&doctree.Text{Value: s[i+1 : i+1+end]}}})
				i += end + 2
				continue
			}
		}
		plain.WriteByte(s[i])
		i++
	}
	flush()
	return out
}
