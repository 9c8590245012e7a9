// Package extract walks Python syntax trees and extracts translatable
// messages: recognized translation-function calls and qualifying docstrings.
package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"potextract/internal/catalog"
	"potextract/internal/keyword"
	"potextract/internal/textutil"

	"github.com/rs/zerolog/log"
)

// Sink receives messages as the walker finds them. catalog.Manager is the
// production sink; Buffer collects per file for parallel runs.
type Sink interface {
	AddEntry(msg catalog.Message)
}

// Buffer is a Sink that records messages in discovery order.
type Buffer struct {
	Messages []catalog.Message
}

func (b *Buffer) AddEntry(msg catalog.Message) {
	b.Messages = append(b.Messages, msg)
}

// Options controls which constructs the extractor considers translatable.
type Options struct {
	// Docstrings extracts every module, class and function docstring.
	Docstrings bool
	// CmdDocstrings extracts docstrings of definitions carrying a
	// command, group or cog marker decorator. Docstrings wins when both
	// are set.
	CmdDocstrings bool
	// CommentTag starts a translator comment block. Defaults to
	// DefaultCommentTag.
	CommentTag string
}

// functionMarkers and classMarkers name the decorators whose definitions
// qualify for docstring extraction under CmdDocstrings.
var (
	functionMarkers = map[string]bool{"command": true, "group": true}
	classMarkers    = map[string]bool{"cog_i18n": true}
)

// Extractor extracts messages from Python source units.
type Extractor struct {
	registry *keyword.Registry
	opts     Options
}

// New creates an Extractor using the given keyword registry.
func New(registry *keyword.Registry, opts Options) *Extractor {
	if opts.CommentTag == "" {
		opts.CommentTag = DefaultCommentTag
	}
	return &Extractor{registry: registry, opts: opts}
}

// ExtractFile parses one source file and forwards every message it finds to
// the sink. A syntax error is returned for the caller to report; per-site
// extraction problems are reported here and do not stop the traversal.
func (e *Extractor) ExtractFile(ctx context.Context, path string, src []byte, sink Sink) error {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return fmt.Errorf("%s:%d: invalid syntax", path, firstErrorLine(root))
	}

	w := &walker{
		file:     path,
		src:      src,
		registry: e.registry,
		opts:     e.opts,
		comments: CollectComments(root, src, e.opts.CommentTag),
		sink:     sink,
	}

	if e.opts.Docstrings {
		w.extractDocstring(root)
	}
	w.walk(root)

	for _, line := range w.comments.Unused() {
		log.Warn().
			Str("file", path).
			Int("line", line).
			Msg("Unused translator comment")
	}
	return nil
}

func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPoint().Row) + 1
}

// walker carries the per-file traversal state: the pending translator
// comments and the sink receiving completed messages.
type walker struct {
	file     string
	src      []byte
	registry *keyword.Registry
	opts     Options
	comments *CommentMap
	sink     Sink
}

// walk dispatches on node kind and always recurses, since translatable
// calls nest inside other calls' arguments, f-strings and decorators.
func (w *walker) walk(n *sitter.Node) {
	switch n.Type() {
	case "call":
		w.handleCall(n)
	case "decorated_definition":
		w.handleDefinition(n.ChildByFieldName("definition"), n)
	case "class_definition", "function_definition":
		if p := n.Parent(); p == nil || p.Type() != "decorated_definition" {
			w.handleDefinition(n, nil)
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		w.walk(child)
	}
}

// handleCall validates the shape of a call to a registered keyword and
// forwards the resolved message. Rejections abort only this call site.
func (w *walker) handleCall(n *sitter.Node) {
	name := callTargetName(n.ChildByFieldName("function"), w.src)
	if name == "" || !w.registry.Known(name) {
		return
	}
	line := int(n.StartPoint().Row) + 1

	args := n.ChildByFieldName("arguments")
	if args == nil || args.Type() != "argument_list" {
		w.report(n, line, "unsupported argument construct")
		return
	}

	var positional []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "comment":
		case "keyword_argument":
			w.report(n, line, fmt.Sprintf("%s() call with keyword arguments", name))
			return
		case "list_splat", "dictionary_splat":
			w.report(n, line, fmt.Sprintf("%s() call with starred arguments", name))
			return
		default:
			positional = append(positional, arg)
		}
	}

	spec, ok := w.registry.Match(name, len(positional))
	if !ok {
		w.report(n, line, fmt.Sprintf("no spec for %s() accepts %d argument(s)", name, len(positional)))
		return
	}

	singular, singularLine, ok := ResolveLiteral(positional[spec.SingularIndex()], w.src)
	if !ok {
		w.report(n, line, "expected a constant string literal")
		return
	}

	var plural, context string
	pluralLine, contextLine := -1, -1
	if spec.Plural >= 0 {
		plural, pluralLine, ok = ResolveLiteral(positional[spec.Plural], w.src)
		if !ok {
			w.report(n, line, "expected a constant string literal for the plural form")
			return
		}
	}
	if spec.Context >= 0 {
		context, contextLine, ok = ResolveLiteral(positional[spec.Context], w.src)
		if !ok {
			w.report(n, line, "expected a constant string literal for the context")
			return
		}
	}

	comment := w.takeComments(spec.Comment, line, singularLine, pluralLine, contextLine)

	w.sink.AddEntry(catalog.Message{
		Singular: singular,
		Plural:   plural,
		Context:  context,
		Comment:  comment,
		Line:     line,
	})
}

// takeComments consumes pending translator comments keyed by the call line
// and each resolved literal's line, in that order. The keyword spec's own
// comment, when present, comes first.
func (w *walker) takeComments(specComment string, lines ...int) string {
	var parts []string
	if specComment != "" {
		parts = append(parts, specComment)
	}
	seen := make(map[int]bool)
	for _, line := range lines {
		if line < 0 || seen[line] {
			continue
		}
		seen[line] = true
		if text, ok := w.comments.Take(line); ok {
			parts = append(parts, text)
		}
	}
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

// handleDefinition decides whether a class or function qualifies for
// docstring extraction. Traversal into the body happens in walk regardless.
func (w *walker) handleDefinition(def, decorated *sitter.Node) {
	if def == nil {
		return
	}
	candidate := w.opts.Docstrings
	if !candidate && w.opts.CmdDocstrings && decorated != nil {
		candidate = w.hasMarkerDecorator(decorated, def.Type())
	}
	if !candidate {
		return
	}
	if body := def.ChildByFieldName("body"); body != nil {
		w.extractDocstring(body)
	}
}

// extractDocstring resolves the docstring of a body (or the module root)
// and forwards it flagged as a docstring, at the literal's own line.
func (w *walker) extractDocstring(body *sitter.Node) {
	value, line, ok := DocstringLiteral(body, w.src)
	if !ok {
		return
	}
	comment, _ := w.comments.Take(line)
	w.sink.AddEntry(catalog.Message{
		Singular:    value,
		Comment:     comment,
		Line:        line,
		IsDocstring: true,
	})
}

// hasMarkerDecorator checks the final target name of every decorator on a
// decorated definition against the marker set for the definition kind.
func (w *walker) hasMarkerDecorator(decorated *sitter.Node, defType string) bool {
	markers := functionMarkers
	if defType == "class_definition" {
		markers = classMarkers
	}

	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		deco := decorated.NamedChild(i)
		if deco.Type() != "decorator" {
			continue
		}
		expr := firstNamedNonComment(deco)
		if expr == nil {
			continue
		}
		if expr.Type() == "call" {
			expr = expr.ChildByFieldName("function")
			if expr == nil {
				continue
			}
		}
		if markers[finalName(expr, w.src)] {
			return true
		}
	}
	return false
}

// callTargetName resolves the name a call is checked under: a bare
// identifier, or the final attribute of a member access. Anything else
// (e.g. calling the result of another call) has no usable name.
func callTargetName(fn *sitter.Node, src []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier", "attribute":
		return finalName(fn, src)
	}
	return ""
}

// finalName extracts the trailing identifier of an expression: `name`,
// `obj.name` and dotted names all resolve to `name`.
func finalName(expr *sitter.Node, src []byte) string {
	switch expr.Type() {
	case "identifier":
		return expr.Content(src)
	case "attribute":
		if attr := expr.ChildByFieldName("attribute"); attr != nil {
			return attr.Content(src)
		}
	case "dotted_name":
		if n := int(expr.NamedChildCount()); n > 0 {
			return expr.NamedChild(n - 1).Content(src)
		}
	}
	return ""
}

// report logs one recoverable extraction error with a source snippet.
func (w *walker) report(n *sitter.Node, line int, msg string) {
	snippet := textutil.Truncate(textutil.CollapseSpaces(n.Content(w.src)), 60)
	log.Error().
		Str("file", w.file).
		Int("line", line).
		Str("source", snippet).
		Msg(msg)
}
