// Package directive implements the generate-include directive processor: it
// resolves a path:function reference, executes the named Starlark function in
// an isolated namespace, and turns the returned string into document blocks
// according to the selected output mode.
package directive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docweave/internal/doctree"
	"docweave/internal/script"
)

// Mode selects how generated output is interpreted.
type Mode int

const (
	// ModeMarkdown parses the output as Markdown (the default).
	ModeMarkdown Mode = iota
	// ModeRST parses the output as reStructuredText.
	ModeRST
	// ModeLiteral includes the output verbatim in a literal block.
	ModeLiteral
)

// String returns the option value for the mode.
func (m Mode) String() string {
	switch m {
	case ModeMarkdown:
		return "md"
	case ModeRST:
		return "rst"
	case ModeLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// ParseMode parses a :type: option value. The empty string selects the
// default Markdown mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "md":
		return ModeMarkdown, nil
	case "rst":
		return ModeRST, nil
	case "literal":
		return ModeLiteral, nil
	}
	return 0, fmt.Errorf("unknown type %q (want md, rst, or literal)", s)
}

// Invocation is one resolved directive occurrence.
type Invocation struct {
	// SourcePath is the resolved path of the generator file.
	SourcePath string
	// Function is the name of the zero-argument generator function.
	Function string
	// Mode selects the output interpretation.
	Mode Mode
}

// Parser parses generated markup into a document tree. Both parsing
// collaborators are owned by the build pipeline; the processor treats them
// as black boxes.
type Parser interface {
	Parse(source []byte, name string) *doctree.Document
}

// maxDepth caps recursive directive expansion, so a generator emitting
// another generate-include block cannot loop the build forever.
const maxDepth = 10

// Processor executes generate-include directives. Generator modules are
// loaded fresh on every invocation; nothing is cached between directives or
// builds.
type Processor struct {
	root     string
	markdown Parser
	rst      Parser
	invoke   func(path, function string) (string, error)
}

// NewProcessor returns a processor that resolves generator files against the
// directive's document directory first and root second.
func NewProcessor(root string, markdown, rst Parser) *Processor {
	return &Processor{
		root:     root,
		markdown: markdown,
		rst:      rst,
		invoke:   script.Call,
	}
}

// Resolve interprets a directive occurrence in the named document, without
// executing anything. It applies the reference and mode validation rules and
// locates the generator file.
func (p *Processor) Resolve(docPath string, d *doctree.Directive) (Invocation, error) {
	fail := func(t ErrorType, msg string, cause error) (Invocation, error) {
		return Invocation{}, &Error{Type: t, Ref: d.Ref, Doc: docPath, Line: d.Line, Message: msg, Cause: cause}
	}

	mode, err := ParseMode(d.Type)
	if err != nil {
		return fail(ErrorMalformedReference, err.Error(), nil)
	}

	idx := strings.LastIndex(d.Ref, ":")
	if idx < 0 {
		return fail(ErrorMalformedReference,
			fmt.Sprintf("invalid argument %q, expected 'path/to/file:function_name'", d.Ref), nil)
	}
	filePart, function := d.Ref[:idx], d.Ref[idx+1:]

	// Relative to the document first, then to the source root.
	candidates := []string{filepath.Join(filepath.Dir(docPath), filePart)}
	if p.root != "" {
		candidates = append(candidates, filepath.Join(p.root, filePart))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return Invocation{SourcePath: c, Function: function, Mode: mode}, nil
		}
	}
	return fail(ErrorFileNotFound, fmt.Sprintf("file not found: %s", filePart), nil)
}

// Process executes one directive occurrence and returns the blocks to splice
// in its place. The returned dependency is the resolved generator path, for
// incremental rebuild tracking.
func (p *Processor) Process(docPath string, d *doctree.Directive) (blocks []doctree.Block, dep string, err error) {
	inv, err := p.Resolve(docPath, d)
	if err != nil {
		return nil, "", err
	}

	out, err := p.invoke(inv.SourcePath, inv.Function)
	if err != nil {
		t := ErrorGeneration
		if kind, ok := script.KindOf(err); ok {
			switch kind {
			case script.KindLoad:
				t = ErrorLoad
			case script.KindSymbolNotFound:
				t = ErrorSymbolNotFound
			case script.KindBadReturn:
				t = ErrorInvalidOutput
			}
		}
		return nil, "", &Error{
			Type: t, Ref: d.Ref, Doc: docPath, Line: d.Line,
			Message: fmt.Sprintf("executing %s:%s failed", inv.SourcePath, inv.Function),
			Cause:   err,
		}
	}

	switch inv.Mode {
	case ModeLiteral:
		blocks = []doctree.Block{&doctree.LiteralBlock{Text: out}}
	case ModeRST:
		blocks = p.rst.Parse([]byte(out), generatedName(docPath, d)).Blocks
	default:
		blocks = p.markdown.Parse([]byte(out), generatedName(docPath, d)).Blocks
	}
	return blocks, inv.SourcePath, nil
}

// Apply processes every directive in the document, splicing generated blocks
// in place. Failed directives are replaced by Problem nodes and reported in
// errs; the rest of the document still builds. Generated output may itself
// contain directives, which are expanded up to a fixed depth.
func (p *Processor) Apply(doc *doctree.Document) (deps []string, errs []error) {
	for depth := 0; depth < maxDepth; depth++ {
		if len(doctree.Directives(doc)) == 0 {
			return deps, errs
		}
		doctree.Transform(doc, func(d *doctree.Directive) []doctree.Block {
			blocks, dep, err := p.Process(doc.Source, d)
			if err != nil {
				errs = append(errs, err)
				return []doctree.Block{&doctree.Problem{Message: err.Error(), Line: d.Line}}
			}
			deps = append(deps, dep)
			return blocks
		})
	}
	for _, d := range doctree.Directives(doc) {
		err := &Error{
			Type: ErrorGeneration, Ref: d.Ref, Doc: doc.Source, Line: d.Line,
			Message: fmt.Sprintf("directive nesting exceeds %d levels", maxDepth),
		}
		errs = append(errs, err)
	}
	doctree.Transform(doc, func(d *doctree.Directive) []doctree.Block {
		return []doctree.Block{&doctree.Problem{Message: "directive nesting too deep", Line: d.Line}}
	})
	return deps, errs
}

func generatedName(docPath string, d *doctree.Directive) string {
	return fmt.Sprintf("%s:%d <generate-include>", docPath, d.Line)
}
