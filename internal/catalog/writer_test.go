package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = `# SOME DESCRIPTIVE TITLE.
# Copyright (C) YEAR ORGANIZATION
# FIRST AUTHOR <EMAIL@ADDRESS>, YEAR.
#
msgid ""
msgstr ""
"Project-Id-Version: PACKAGE VERSION\n"
"POT-Creation-Date: 2024-01-02 15:04+0000\n"
"PO-Revision-Date: YEAR-MO-DA HO:MI+ZONE\n"
"Last-Translator: FULL NAME <EMAIL@ADDRESS>\n"
"Language-Team: LANGUAGE <LL@li.org>\n"
"MIME-Version: 1.0\n"
"Content-Type: text/plain; charset=UTF-8\n"
"Content-Transfer-Encoding: 8bit\n"
"Generated-By: potextract test\n"

`

func TestRenderCatalog(t *testing.T) {
	m := newTestManager()
	m.SetCurrentFile("app.py")
	m.AddEntry(Message{Singular: "hello", Comment: "Translators: greeting", Line: 1})
	m.AddEntry(Message{Singular: "%d file", Plural: "%d files", Line: 3})
	m.AddEntry(Message{Singular: "May", Context: "month", Line: 5})
	m.AddEntry(Message{Singular: "line1\nline2", Line: 7, IsDocstring: true})
	m.AddEntry(Message{Singular: `quote " and tab` + "\t", Line: 9})

	got := string(renderCatalog(m.Current(), m.opts, "2024-01-02 15:04+0000"))

	want := testHeader + `#. Translators: greeting
#: app.py:1
msgid "hello"
msgstr ""

#: app.py:3
#, python-format
msgid "%d file"
msgid_plural "%d files"
msgstr[0] ""
msgstr[1] ""

#: app.py:5
msgctxt "month"
msgid "May"
msgstr ""

#: app.py:7
#, docstring
msgid ""
"line1\n"
"line2"
msgstr ""

#: app.py:9
msgid "quote \" and tab\t"
msgstr ""

`
	assert.Equal(t, want, got)
}

func TestRenderCatalogNoContext(t *testing.T) {
	m := NewManager(Options{
		OutputDir:      "locales",
		OutputFilename: "messages.pot",
		Generator:      "potextract test",
	})
	m.SetCurrentFile("app.py")
	m.AddEntry(Message{Singular: "hello", Line: 1, IsDocstring: true})

	got := string(renderCatalog(m.Current(), m.opts, "2024-01-02 15:04+0000"))
	assert.NotContains(t, got, "#:")
	assert.NotContains(t, got, "#,")
	assert.Contains(t, got, "msgid \"hello\"\nmsgstr \"\"\n")
}

func TestReferenceWrapping(t *testing.T) {
	m := newTestManager()
	m.opts.Width = 30
	m.SetCurrentFile("some/long/path/app.py")
	for _, line := range []int{1, 2, 3, 4} {
		m.AddEntry(Message{Singular: "x", Line: line})
	}

	got := string(renderCatalog(m.Current(), m.opts, "2024-01-02 15:04+0000"))

	var refLines []string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "#:") {
			refLines = append(refLines, line)
			assert.LessOrEqual(t, len(line), 30)
		}
	}
	assert.Len(t, refLines, 4)
}

func TestNormalizeTrailingNewline(t *testing.T) {
	assert.Equal(t, `"plain"`, normalize("plain"))
	assert.Equal(t, "\"\"\n\"a\\n\"\n\"b\\n\"", normalize("a\nb\n"))
}

func TestWriteIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.py")

	writeOnce := func() []byte {
		m := newTestManager()
		m.SetCurrentFile(src)
		m.AddEntry(Message{Singular: "hello", Line: 1})
		require.NoError(t, m.Write())
		data, err := os.ReadFile(filepath.Join(dir, "locales", "messages.pot"))
		require.NoError(t, err)
		return data
	}

	first := writeOnce()
	second := writeOnce()
	assert.Equal(t, first, second)
}

func TestWriteOmitEmpty(t *testing.T) {
	dir := t.TempDir()

	m := newTestManager()
	m.opts.OmitEmpty = true
	m.SetCurrentFile(filepath.Join(dir, "app.py"))
	require.NoError(t, m.Write())

	_, err := os.Stat(filepath.Join(dir, "locales", "messages.pot"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteEmptyCatalogWithoutOmit(t *testing.T) {
	dir := t.TempDir()

	m := newTestManager()
	m.SetCurrentFile(filepath.Join(dir, "app.py"))
	require.NoError(t, m.Write())

	data, err := os.ReadFile(filepath.Join(dir, "locales", "messages.pot"))
	require.NoError(t, err)
	assert.Equal(t, testHeader, string(data))
}

func TestWriterClockInjection(t *testing.T) {
	m := newTestManager()
	m.opts.Now = func() time.Time {
		return time.Date(2030, 6, 15, 8, 30, 0, 0, time.FixedZone("X", 2*3600))
	}
	dir := t.TempDir()
	m.SetCurrentFile(filepath.Join(dir, "app.py"))
	require.NoError(t, m.Write())

	data, err := os.ReadFile(filepath.Join(dir, "locales", "messages.pot"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "POT-Creation-Date: 2030-06-15 08:30+0200\n")
}
