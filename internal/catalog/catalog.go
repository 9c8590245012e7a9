// Package catalog aggregates extracted messages into per-output-path POT
// catalogs and serializes them in the gettext catalog format.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Message is one occurrence of a translatable construct found in a source
// file. Plural and Context are empty when the construct carries none.
type Message struct {
	Singular    string
	Plural      string
	Context     string
	Comment     string
	Line        int
	IsDocstring bool
}

// Occurrence is one (file, line) reference for a catalog entry.
type Occurrence struct {
	File string
	Line int
}

// Less orders occurrences by file, then line.
func (o Occurrence) Less(other Occurrence) bool {
	if o.File != other.File {
		return o.File < other.File
	}
	return o.Line < other.Line
}

// Entry is one unique message within a catalog, identified by its singular
// text and context. Occurrences stay sorted by (file, line).
type Entry struct {
	Singular    string
	Plural      string
	Context     string
	Comment     string
	Docstring   bool
	Occurrences []Occurrence
}

type entryKey struct {
	singular string
	context  string
}

// Catalog collects the unique messages destined for one output file.
type Catalog struct {
	OutputPath string

	entries []*Entry
	index   map[entryKey]*Entry
}

// Entries returns the catalog's entries in first-insertion order.
func (c *Catalog) Entries() []*Entry { return c.entries }

// Len returns the number of unique messages in the catalog.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup finds the entry for a (singular, context) pair.
func (c *Catalog) Lookup(singular, context string) (*Entry, bool) {
	e, ok := c.index[entryKey{singular, context}]
	return e, ok
}

// Options configures catalog placement and serialization.
type Options struct {
	// OutputDir is joined under each source file's directory (or the
	// working directory when RelativeToCwd is set).
	OutputDir      string
	OutputFilename string
	RelativeToCwd  bool
	// OmitEmpty skips writing catalogs that collected no entries.
	OmitEmpty bool
	// IncludeContext emits the #: reference and #, flag lines.
	IncludeContext bool
	// Width caps the length of #: reference lines.
	Width int
	// Generator names the tool in the POT header, e.g. "potextract 3.0".
	Generator string
	// Now supplies the POT-Creation-Date; defaults to time.Now.
	Now func() time.Time
}

// Manager owns every catalog produced during a run, keyed by output path.
type Manager struct {
	opts Options

	catalogs    map[string]*Catalog
	order       []string
	current     *Catalog
	currentFile string
}

// NewManager creates a Manager with the given options.
func NewManager(opts Options) *Manager {
	if opts.Width <= 0 {
		opts.Width = 79
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		catalogs: make(map[string]*Catalog),
	}
}

// SetCurrentFile switches aggregation to the catalog that the given input
// file maps to, creating it the first time its output path is seen.
func (m *Manager) SetCurrentFile(path string) {
	dir := filepath.Dir(path)
	if m.opts.RelativeToCwd {
		dir = "."
	}
	outPath := filepath.Join(dir, m.opts.OutputDir, m.opts.OutputFilename)

	cat, ok := m.catalogs[outPath]
	if !ok {
		cat = &Catalog{
			OutputPath: outPath,
			index:      make(map[entryKey]*Entry),
		}
		m.catalogs[outPath] = cat
		m.order = append(m.order, outPath)
	}
	m.current = cat
	m.currentFile = path
}

// Current returns the catalog for the most recent SetCurrentFile call.
func (m *Manager) Current() *Catalog { return m.current }

// CurrentFile returns the input path set by the last SetCurrentFile call.
func (m *Manager) CurrentFile() string { return m.currentFile }

// Catalogs returns all catalogs in the order their output paths were first
// seen.
func (m *Manager) Catalogs() []*Catalog {
	out := make([]*Catalog, 0, len(m.order))
	for _, path := range m.order {
		out = append(out, m.catalogs[path])
	}
	return out
}

// AddEntry merges a message into the current catalog. Repeats of the same
// (singular, context) pair union their occurrences; plural usage conflicts
// and empty message ids are warned about and resolved non-fatally.
func (m *Manager) AddEntry(msg Message) {
	if m.current == nil {
		panic("catalog: AddEntry called before SetCurrentFile")
	}
	if msg.Singular == "" {
		log.Warn().
			Str("file", m.currentFile).
			Int("line", msg.Line).
			Msg("Empty msgid is reserved by gettext, entry discarded")
		return
	}

	occ := Occurrence{File: m.currentFile, Line: msg.Line}
	key := entryKey{msg.Singular, msg.Context}

	entry, ok := m.current.index[key]
	if !ok {
		entry = &Entry{
			Singular:    msg.Singular,
			Plural:      msg.Plural,
			Context:     msg.Context,
			Comment:     msg.Comment,
			Docstring:   msg.IsDocstring,
			Occurrences: []Occurrence{occ},
		}
		m.current.index[key] = entry
		m.current.entries = append(m.current.entries, entry)
		return
	}

	if (entry.Plural == "") != (msg.Plural == "") {
		log.Warn().
			Str("file", m.currentFile).
			Int("line", msg.Line).
			Str("msgid", msg.Singular).
			Msg("Message is used both with and without a plural form")
		if entry.Plural == "" {
			entry.Plural = msg.Plural
		}
	}

	if msg.Comment != "" {
		switch {
		case entry.Comment == "":
			entry.Comment = msg.Comment
		case entry.Comment == msg.Comment,
			hasTail(entry.Comment, msg.Comment):
			// Same call site seen again, do not duplicate the comment.
		default:
			entry.Comment += "\n" + msg.Comment
		}
	}

	if msg.IsDocstring {
		entry.Docstring = true
	}

	entry.insertOccurrence(occ)
}

func hasTail(comment, tail string) bool {
	return len(comment) > len(tail) && comment[len(comment)-len(tail)-1] == '\n' &&
		comment[len(comment)-len(tail):] == tail
}

// insertOccurrence keeps the occurrence list sorted by (file, line).
func (e *Entry) insertOccurrence(occ Occurrence) {
	i := sort.Search(len(e.Occurrences), func(i int) bool {
		return occ.Less(e.Occurrences[i])
	})
	e.Occurrences = append(e.Occurrences, Occurrence{})
	copy(e.Occurrences[i+1:], e.Occurrences[i:])
	e.Occurrences[i] = occ
}

// Write serializes every accumulated catalog to disk. Failures for one
// catalog do not stop the others; all errors are reported together.
func (m *Manager) Write() error {
	timestamp := m.opts.Now().Format("2006-01-02 15:04-0700")

	var errs *multierror.Error
	for _, cat := range m.Catalogs() {
		if m.opts.OmitEmpty && cat.Len() == 0 {
			log.Debug().Str("path", cat.OutputPath).Msg("Skipping empty catalog")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(cat.OutputPath), 0755); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("create output directory: %w", err))
			continue
		}
		data := renderCatalog(cat, m.opts, timestamp)
		if err := os.WriteFile(cat.OutputPath, data, 0644); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("write catalog %s: %w", cat.OutputPath, err))
			continue
		}
		log.Info().
			Str("path", cat.OutputPath).
			Int("messages", cat.Len()).
			Msg("Catalog written")
	}
	return errs.ErrorOrNil()
}

// sortedEntries returns the entries ordered by their first occurrence,
// falling back to insertion order for ties.
func (c *Catalog) sortedEntries() []*Entry {
	entries := make([]*Entry, len(c.entries))
	copy(entries, c.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Occurrences[0].Less(entries[j].Occurrences[0])
	})
	return entries
}
