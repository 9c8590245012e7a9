package extract

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultCommentTag marks comments destined for translators.
const DefaultCommentTag = "Translators: "

// CommentMap holds pending translator comments keyed by the line number of
// the first code line that follows them. Entries are consumed as the tree
// walker attaches them; whatever remains at the end of a file was never
// associable with a message.
type CommentMap struct {
	pending map[int]string
}

// CollectComments scans one source unit for translator comments before tree
// traversal. A comment block starts at a comment line whose stripped text
// begins with the tag; subsequent comment lines extend it regardless of tag,
// blank lines are skipped, and the first code line closes the block and
// becomes its key.
func CollectComments(root *sitter.Node, src []byte, tag string) *CommentMap {
	commentLines := commentOnlyLines(root, src)

	pending := make(map[int]string)
	var buffer []string

	lines := strings.Split(string(src), "\n")
	for i, line := range lines {
		lineno := i + 1

		text, isComment := commentLines[lineno]
		switch {
		case strings.TrimSpace(line) == "":
			// Whitespace separates comment blocks without ending them.
		case isComment:
			if len(buffer) > 0 || strings.HasPrefix(text, tag) {
				buffer = append(buffer, text)
			}
		default:
			if len(buffer) > 0 {
				pending[lineno] = strings.Join(buffer, "\n")
				buffer = nil
			}
		}
	}
	// A trailing block with no code after it is dropped here and therefore
	// never reported, matching the collector contract.

	return &CommentMap{pending: pending}
}

// Take consumes the comment block keyed by the given line, if any.
func (m *CommentMap) Take(line int) (string, bool) {
	text, ok := m.pending[line]
	if ok {
		delete(m.pending, line)
	}
	return text, ok
}

// Unused returns the lines of all blocks that were never consumed, sorted.
func (m *CommentMap) Unused() []int {
	lines := make([]int, 0, len(m.pending))
	for line := range m.pending {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// commentOnlyLines maps each line occupied solely by a comment (only
// whitespace before the `#`) to the comment's stripped text. Scanning the
// tree rather than raw text keeps `#` inside string literals from being
// mistaken for a comment.
func commentOnlyLines(root *sitter.Node, src []byte) map[int]string {
	lineStarts := computeLineStarts(src)
	out := make(map[int]string)

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() != "comment" {
				visit(child)
				continue
			}
			line := int(child.StartPoint().Row) + 1
			start := lineStarts[line-1]
			if !isBlank(src[start:child.StartByte()]) {
				continue
			}
			text := child.Content(src)
			text = strings.TrimLeft(strings.TrimPrefix(text, "#"), " \t")
			out[line] = text
		}
	}
	visit(root)
	return out
}

func computeLineStarts(src []byte) []uint32 {
	starts := []uint32{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return starts
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}
