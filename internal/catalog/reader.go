package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File is a parsed POT file: its header fields plus all message entries.
type File struct {
	Header  map[string]string
	Entries []*Entry
}

// ReadFile parses a POT file from disk.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a POT catalog. It understands the subset of the format this
// tool produces: extracted comments, reference lines, flag lines, msgctxt,
// msgid, msgid_plural and msgstr blocks with quoted continuation lines.
func Read(r io.Reader) (*File, error) {
	file := &File{Header: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cur          *Entry
		lastStr      *string
		haveMsg      bool
		headerMsgstr string
		inHeader     bool
		lineNum      int
	)

	flush := func() {
		if cur == nil {
			return
		}
		if inHeader {
			parseHeader(file.Header, headerMsgstr)
		} else if haveMsg {
			file.Entries = append(file.Entries, cur)
		}
		cur, lastStr, haveMsg, inHeader, headerMsgstr = nil, nil, false, false, ""
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case strings.HasPrefix(trimmed, "#. "):
			if cur == nil {
				cur = &Entry{}
			}
			if cur.Comment != "" {
				cur.Comment += "\n"
			}
			cur.Comment += trimmed[3:]

		case strings.HasPrefix(trimmed, "#:"):
			if cur == nil {
				cur = &Entry{}
			}
			for _, ref := range strings.Fields(trimmed[2:]) {
				fileName, lineText, ok := cutLast(ref, ':')
				if !ok {
					return nil, fmt.Errorf("line %d: malformed reference %q", lineNum, ref)
				}
				n, err := strconv.Atoi(lineText)
				if err != nil {
					return nil, fmt.Errorf("line %d: malformed reference %q", lineNum, ref)
				}
				cur.Occurrences = append(cur.Occurrences, Occurrence{File: fileName, Line: n})
			}

		case strings.HasPrefix(trimmed, "#,"):
			if cur == nil {
				cur = &Entry{}
			}
			for _, flag := range strings.Split(trimmed[2:], ",") {
				if strings.TrimSpace(flag) == "docstring" {
					cur.Docstring = true
				}
			}

		case strings.HasPrefix(trimmed, "#"):
			// Translator comments and the boilerplate block are skipped.

		case strings.HasPrefix(trimmed, "msgctxt "):
			if cur == nil {
				cur = &Entry{}
			}
			value, err := unquote(trimmed[len("msgctxt "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			cur.Context = value
			lastStr = &cur.Context

		case strings.HasPrefix(trimmed, "msgid_plural "):
			if cur == nil || !haveMsg {
				return nil, fmt.Errorf("line %d: msgid_plural before msgid", lineNum)
			}
			value, err := unquote(trimmed[len("msgid_plural "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			cur.Plural = value
			lastStr = &cur.Plural

		case strings.HasPrefix(trimmed, "msgid "):
			if cur == nil {
				cur = &Entry{}
			}
			value, err := unquote(trimmed[len("msgid "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			cur.Singular = value
			haveMsg = true
			lastStr = &cur.Singular

		case strings.HasPrefix(trimmed, "msgstr"):
			rest := trimmed[len("msgstr"):]
			if idx := strings.IndexByte(rest, '"'); idx >= 0 {
				rest = rest[idx:]
			}
			value, err := unquote(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if cur != nil && haveMsg && cur.Singular == "" && len(file.Entries) == 0 {
				inHeader = true
				headerMsgstr = value
				lastStr = &headerMsgstr
			} else {
				lastStr = nil
			}

		case strings.HasPrefix(trimmed, `"`):
			value, err := unquote(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if lastStr != nil {
				*lastStr += value
			}

		default:
			return nil, fmt.Errorf("line %d: unexpected content %q", lineNum, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	flush()

	return file, nil
}

func cutLast(s string, sep byte) (string, string, bool) {
	idx := strings.LastIndexByte(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// unquote decodes one quoted POT string fragment.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed quoted string %q", s)
	}
	body := s[1 : len(s)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// parseHeader splits the metadata msgstr into "Key: value" fields.
func parseHeader(header map[string]string, msgstr string) {
	for _, line := range strings.Split(msgstr, "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		header[key] = value
	}
}
