package catalog

import (
	"fmt"
	"strings"

	"potextract/internal/placeholder"
)

// potHeader is the standard POT boilerplate. msgmerge and po-mode both
// expect it, so it is reproduced verbatim with only the timestamp, charset,
// encoding and generator filled in.
const potHeader = `# SOME DESCRIPTIVE TITLE.
# Copyright (C) YEAR ORGANIZATION
# FIRST AUTHOR <EMAIL@ADDRESS>, YEAR.
#
msgid ""
msgstr ""
"Project-Id-Version: PACKAGE VERSION\n"
"POT-Creation-Date: %s\n"
"PO-Revision-Date: YEAR-MO-DA HO:MI+ZONE\n"
"Last-Translator: FULL NAME <EMAIL@ADDRESS>\n"
"Language-Team: LANGUAGE <LL@li.org>\n"
"MIME-Version: 1.0\n"
"Content-Type: text/plain; charset=%s\n"
"Content-Transfer-Encoding: %s\n"
"Generated-By: %s\n"

`

var potEscapes = map[rune]string{
	'\\': `\\`,
	'\t': `\t`,
	'\r': `\r`,
	'\n': `\n`,
	'"':  `\"`,
}

// escape rewrites a message in the C-style escaping POT files use.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if esc, ok := potEscapes[r]; ok {
			b.WriteString(esc)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalize renders a message as a quoted POT string. Multi-line messages
// become an empty first line followed by one quoted fragment per line.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) == 1 {
		return `"` + escape(s) + `"`
	}
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
		lines[len(lines)-1] += "\n"
	}
	for i, line := range lines {
		lines[i] = escape(line)
	}
	return "\"\"\n\"" + strings.Join(lines, "\\n\"\n\"") + "\""
}

// renderCatalog serializes one catalog, entries sorted by first occurrence.
func renderCatalog(c *Catalog, opts Options, timestamp string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, potHeader, timestamp, "UTF-8", "8bit", opts.Generator)

	for _, entry := range c.sortedEntries() {
		writeEntry(&b, entry, opts)
	}
	return []byte(b.String())
}

func writeEntry(b *strings.Builder, entry *Entry, opts Options) {
	for _, line := range commentLines(entry.Comment) {
		b.WriteString("#. ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if opts.IncludeContext {
		writeReferences(b, entry.Occurrences, opts.Width)

		flags := entryFlags(entry)
		if len(flags) > 0 {
			b.WriteString("#, ")
			b.WriteString(strings.Join(flags, ", "))
			b.WriteByte('\n')
		}
	}

	if entry.Context != "" {
		b.WriteString("msgctxt ")
		b.WriteString(normalize(entry.Context))
		b.WriteByte('\n')
	}
	b.WriteString("msgid ")
	b.WriteString(normalize(entry.Singular))
	b.WriteByte('\n')

	if entry.Plural != "" {
		b.WriteString("msgid_plural ")
		b.WriteString(normalize(entry.Plural))
		b.WriteByte('\n')
		b.WriteString("msgstr[0] \"\"\n")
		b.WriteString("msgstr[1] \"\"\n\n")
	} else {
		b.WriteString("msgstr \"\"\n\n")
	}
}

func commentLines(comment string) []string {
	if comment == "" {
		return nil
	}
	return strings.Split(comment, "\n")
}

// writeReferences emits "#: file:line" reference lines, fitting as many
// references per line as the width allows.
func writeReferences(b *strings.Builder, occurrences []Occurrence, width int) {
	line := "#:"
	for _, occ := range occurrences {
		ref := fmt.Sprintf(" %s:%d", occ.File, occ.Line)
		if line != "#:" && len(line)+len(ref) > width {
			b.WriteString(line)
			b.WriteByte('\n')
			line = "#:"
		}
		line += ref
	}
	if line != "#:" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// entryFlags lists the gettext flags for an entry: docstring origin first,
// then any placeholder format flags implied by the message text.
func entryFlags(entry *Entry) []string {
	var flags []string
	if entry.Docstring {
		flags = append(flags, "docstring")
	}
	flags = append(flags, placeholder.Flags(entry.Singular, entry.Plural)...)
	return flags
}
