package extract

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ResolveLiteral determines whether a syntax-tree expression is a
// compile-time-constant string and returns its decoded value along with the
// 1-based line of its first fragment. Byte strings and f-strings are not
// constants here, so any such fragment makes the whole node unresolvable.
func ResolveLiteral(node *sitter.Node, src []byte) (string, int, bool) {
	line := int(node.StartPoint().Row) + 1

	switch node.Type() {
	case "string":
		value, ok := decodeString(node.Content(src))
		return value, line, ok
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			value, ok := decodeString(child.Content(src))
			if !ok {
				return "", 0, false
			}
			b.WriteString(value)
		}
		return b.String(), line, true
	}
	return "", 0, false
}

// DocstringLiteral descends through the statement block of a module, class
// or function body to its first statement and resolves it if it is a bare
// string expression. It returns the decoded docstring and its line.
func DocstringLiteral(body *sitter.Node, src []byte) (string, int, bool) {
	stmt := firstStatement(body)
	if stmt == nil || stmt.Type() != "expression_statement" {
		return "", 0, false
	}
	expr := firstNamedNonComment(stmt)
	if expr == nil {
		return "", 0, false
	}
	return ResolveLiteral(expr, src)
}

func firstStatement(body *sitter.Node) *sitter.Node {
	node := body
	for node != nil && (node.Type() == "block" || node.Type() == "module") {
		node = firstNamedNonComment(node)
	}
	return node
}

func firstNamedNonComment(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// decodeString decodes the exact source text of one Python string token:
// prefix letters, quote style and escape sequences. It is a restricted
// decoder, not an expression evaluator. Byte and formatted strings report
// !ok since their values are not plain compile-time strings.
func decodeString(raw string) (string, bool) {
	var isRaw bool
	i := 0
prefix:
	for ; i < len(raw); i++ {
		switch raw[i] {
		case 'r', 'R':
			isRaw = true
		case 'u', 'U':
		case 'b', 'B', 'f', 'F':
			return "", false
		default:
			break prefix
		}
	}
	raw = raw[i:]

	var quote string
	switch {
	case strings.HasPrefix(raw, `"""`):
		quote = `"""`
	case strings.HasPrefix(raw, "'''"):
		quote = "'''"
	case strings.HasPrefix(raw, `"`):
		quote = `"`
	case strings.HasPrefix(raw, "'"):
		quote = "'"
	default:
		return "", false
	}
	if len(raw) < 2*len(quote) || !strings.HasSuffix(raw, quote) {
		return "", false
	}
	body := raw[len(quote) : len(raw)-len(quote)]

	if isRaw {
		return body, true
	}
	return unescapePython(body), true
}

// unescapePython decodes backslash escapes the way the Python scanner does,
// leaving unrecognized escape sequences in place.
func unescapePython(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\n':
			// Escaped newline joins physical lines.
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j-i < 3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 32)
			b.WriteByte(byte(n))
			i = j - 1
		case 'x':
			if value, width, ok := hexEscape(s[i+1:], 2); ok {
				b.WriteByte(byte(value))
				i += width
			} else {
				b.WriteString(`\x`)
			}
		case 'u':
			if value, width, ok := hexEscape(s[i+1:], 4); ok {
				b.WriteRune(rune(value))
				i += width
			} else {
				b.WriteString(`\u`)
			}
		case 'U':
			if value, width, ok := hexEscape(s[i+1:], 8); ok {
				b.WriteRune(rune(value))
				i += width
			} else {
				b.WriteString(`\U`)
			}
		default:
			// Python keeps unknown escapes, backslash included.
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func hexEscape(s string, width int) (uint64, int, bool) {
	if len(s) < width {
		return 0, 0, false
	}
	value, err := strconv.ParseUint(s[:width], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return value, width, true
}
