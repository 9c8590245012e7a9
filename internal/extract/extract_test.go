package extract

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"potextract/internal/catalog"
	"potextract/internal/keyword"
)

func runExtract(t *testing.T, src string, opts Options) *Buffer {
	t.Helper()
	registry, err := keyword.ParseSpecs(keyword.DefaultSpecs)
	require.NoError(t, err)

	var buf Buffer
	err = New(registry, opts).ExtractFile(context.Background(), "file.py", []byte(src), &buf)
	require.NoError(t, err)
	return &buf
}

func TestGettextCalls(t *testing.T) {
	sources := map[string]string{
		"concatenated prefixes": `_("""t""" r'ex' u't')`,
		"attribute call":        `obj._("text")`,
		"multiline concatenation": `_(
    "t"
    "e"
    "xt"
)
`,
		"inside f-string":        `f"{_('text')}"`,
		"inside raw f-string":    `rf"{_('text')}"`,
		"nested f-strings":       `f"""{f"{_('text')}"}"""`,
		"attribute in f-string":  `f"{obj._('text')}"`,
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			buf := runExtract(t, src, Options{})
			assert.Equal(t, []catalog.Message{{Singular: "text", Line: 1}}, buf.Messages)
		})
	}
}

func TestRejectedCalls(t *testing.T) {
	sources := map[string]string{
		"call on call result":   `type(str)('text')`,
		"f-string argument":     `f"{_(f'text {repl}')}"`,
		"non-string argument":   `_(1)`,
		"excess arguments":      `_('foo', 'bar')`,
		"keyword arguments":     `_('foo', bar='baz')`,
		"starred arguments":     `_(*args)`,
		"no arguments":          `_()`,
		"variable argument":     `_(name)`,
		"byte string argument":  `_(b'text')`,
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			buf := runExtract(t, src, Options{})
			assert.Empty(t, buf.Messages)
		})
	}
}

func TestPartiallyWrongExpression(t *testing.T) {
	buf := runExtract(t, `_(f'foo') + _('bar')`, Options{})
	assert.Equal(t, []catalog.Message{{Singular: "bar", Line: 1}}, buf.Messages)
}

func TestCallInDecoratorArguments(t *testing.T) {
	src := `class MyCog(commands.Cog):
    @app_commands.command(name="command", description=_("English description"))
    async def func(self):
        ...
`
	buf := runExtract(t, src, Options{})
	assert.Equal(t, []catalog.Message{{Singular: "English description", Line: 2}}, buf.Messages)
}

func TestUnusedCommentWarning(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	defer func() { log.Logger = prev }()

	src := `# Translators: orphaned note
x = 1

_('real')
`
	buf := runExtract(t, src, Options{})

	// The comment attaches to the assignment, never reaches the call, and
	// is reported rather than silently dropped.
	assert.Equal(t, []catalog.Message{{Singular: "real", Line: 4}}, buf.Messages)
	assert.Contains(t, logs.String(), "Unused translator comment")
	assert.Contains(t, logs.String(), `"line":2`)
}

func TestSyntaxError(t *testing.T) {
	registry, err := keyword.ParseSpecs(keyword.DefaultSpecs)
	require.NoError(t, err)

	var buf Buffer
	err = New(registry, Options{}).ExtractFile(context.Background(), "file.py", []byte("def f(:\n"), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file.py:")
	assert.Contains(t, err.Error(), "invalid syntax")
	assert.Empty(t, buf.Messages)
}

func TestPluralAndContextSpecs(t *testing.T) {
	registry, err := keyword.ParseSpecs([]string{"ngettext:1,2", "pgettext:1c,2"})
	require.NoError(t, err)

	src := `ngettext('%d file', '%d files', n)
pgettext('month', 'May')
`
	var buf Buffer
	err = New(registry, Options{}).ExtractFile(context.Background(), "file.py", []byte(src), &buf)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Message{
		{Singular: "%d file", Plural: "%d files", Line: 1},
		{Singular: "May", Context: "month", Line: 2},
	}, buf.Messages)
}

func TestSpecCommentPrecedesSourceComment(t *testing.T) {
	registry, err := keyword.ParseSpecs([]string{`tag:1,"Tag name"`})
	require.NoError(t, err)

	src := `# Translators: shown in the tag list
tag('general')
`
	var buf Buffer
	err = New(registry, Options{}).ExtractFile(context.Background(), "file.py", []byte(src), &buf)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Message{
		{Singular: "general", Comment: "Tag name\nTranslators: shown in the tag list", Line: 2},
	}, buf.Messages)
}

const commentsSource = `# Translators: comment A1
_('A') + _('B')

# Translators: comment A2
_('A'
# Translators: comment B1
) + _('B')

# Translators: comment A3
_('A') + _(
    # Translators: comment B2
    'B'
)

# Translators: comment A4
_(
# Translators: comment A5
'A') + _('B')

# Translators: comment AM1
_('A'
'multiline'
# Translators: comment B3
) + _('B')

# Translators: comment C
# multi-line
_('C')

# Translators: comment D

# handles whitespace between

# as long as there's no code between

_('D')
`

func TestCommentAttachment(t *testing.T) {
	registry, err := keyword.ParseSpecs(keyword.DefaultSpecs)
	require.NoError(t, err)

	m := catalog.NewManager(catalog.Options{
		OutputDir:      "locales",
		OutputFilename: "messages.pot",
		IncludeContext: true,
	})
	m.SetCurrentFile("file.py")

	err = New(registry, Options{}).ExtractFile(context.Background(), "file.py", []byte(commentsSource), m)
	require.NoError(t, err)

	occ := func(lines ...int) []catalog.Occurrence {
		out := make([]catalog.Occurrence, len(lines))
		for i, line := range lines {
			out[i] = catalog.Occurrence{File: "file.py", Line: line}
		}
		return out
	}

	want := []*catalog.Entry{
		{
			Singular: "A",
			Comment: "Translators: comment A1\n" +
				"Translators: comment A2\n" +
				"Translators: comment A3\n" +
				"Translators: comment A4\n" +
				"Translators: comment A5",
			Occurrences: occ(2, 5, 10, 16),
		},
		{
			Singular:    "B",
			Comment:     "Translators: comment B1\nTranslators: comment B2\nTranslators: comment B3",
			Occurrences: occ(2, 7, 10, 18, 24),
		},
		{
			Singular:    "Amultiline",
			Comment:     "Translators: comment AM1",
			Occurrences: occ(21),
		},
		{
			Singular:    "C",
			Comment:     "Translators: comment C\nmulti-line",
			Occurrences: occ(28),
		},
		{
			Singular: "D",
			Comment: "Translators: comment D\n" +
				"handles whitespace between\n" +
				"as long as there's no code between",
			Occurrences: occ(36),
		},
	}
	assert.Equal(t, want, m.Current().Entries())
}

var realDocstrings = []string{
	`"""doc"""`,
	`r'''doc'''`,
	`R'doc'`,
	`u"doc"`,
	"'d' 'o'\\\n'c'",
}

var fakeDocstrings = []string{
	`b"""doc"""`,
	`f"""doc"""`,
}

var plainTemplates = []struct {
	name string
	tmpl string
	line int
}{
	{"module", "%s\n", 1},
	{"async function", "async def func(arg1, arg2):\n    %s\n", 2},
	{"function", "def func(arg1, arg2):\n    %s\n", 2},
	{"class", "class Example:\n    %s\n", 2},
	{"async method", "class Example:\n    async def meth(self, arg1, arg2):\n        %s\n", 3},
	{"method", "class Example:\n    def meth(self, arg1, arg2):\n        %s\n", 3},
}

// decoratedTemplates format a decorator name and a docstring, in that order.
var decoratedTemplates = []struct {
	name     string
	tmpl     string
	forClass bool
	line     int
}{
	{"async function", "@commands.%[1]s()\nasync def func(arg1, arg2):\n    %[2]s\n", false, 3},
	{"function", "@commands.%[1]s()\n@asyncio.coroutine\ndef func(arg1, arg2):\n    %[2]s\n", false, 4},
	{"class", "@%[1]s(_)\nclass Example(commands.Cog):\n    %[2]s\n", true, 3},
	{"async method", "class Example(commands.Cog):\n    @commands.%[1]s()\n    async def meth(self, ctx, arg1, arg2):\n        %[2]s\n", false, 4},
	{"method", "class Example(commands.Cog):\n    @commands.%[1]s()\n    @asyncio.coroutine\n    def meth(self, ctx, arg1, arg2):\n        %[2]s\n", false, 5},
}

func decoratorNames(forClass bool) []string {
	if forClass {
		return []string{"cog_i18n"}
	}
	return []string{"command", "group"}
}

func TestDocstringsExtracted(t *testing.T) {
	opts := Options{Docstrings: true}

	for _, tc := range plainTemplates {
		for _, doc := range realDocstrings {
			t.Run(tc.name, func(t *testing.T) {
				buf := runExtract(t, fmt.Sprintf(tc.tmpl, doc), opts)
				assert.Equal(t, []catalog.Message{
					{Singular: "doc", Line: tc.line, IsDocstring: true},
				}, buf.Messages)
			})
		}
	}
	for _, tc := range decoratedTemplates {
		for _, deco := range decoratorNames(tc.forClass) {
			t.Run(tc.name+" "+deco, func(t *testing.T) {
				buf := runExtract(t, fmt.Sprintf(tc.tmpl, deco, `"""doc"""`), opts)
				assert.Equal(t, []catalog.Message{
					{Singular: "doc", Line: tc.line, IsDocstring: true},
				}, buf.Messages)
			})
		}
	}
}

func TestFakeDocstringsIgnored(t *testing.T) {
	for _, opts := range []Options{{Docstrings: true}, {CmdDocstrings: true}} {
		for _, tc := range plainTemplates {
			for _, doc := range fakeDocstrings {
				buf := runExtract(t, fmt.Sprintf(tc.tmpl, doc), opts)
				assert.Empty(t, buf.Messages, "%s: %q", tc.name, doc)
			}
		}
		for _, tc := range decoratedTemplates {
			for _, deco := range decoratorNames(tc.forClass) {
				for _, doc := range fakeDocstrings {
					buf := runExtract(t, fmt.Sprintf(tc.tmpl, deco, doc), opts)
					assert.Empty(t, buf.Messages, "%s %s: %q", tc.name, deco, doc)
				}
			}
		}
	}
}

func TestCmdDocstrings(t *testing.T) {
	opts := Options{CmdDocstrings: true}

	for _, tc := range plainTemplates {
		buf := runExtract(t, fmt.Sprintf(tc.tmpl, `"""doc"""`), opts)
		assert.Empty(t, buf.Messages, "undecorated %s", tc.name)
	}

	for _, tc := range decoratedTemplates {
		for _, deco := range decoratorNames(tc.forClass) {
			for _, doc := range realDocstrings {
				t.Run(tc.name+" "+deco, func(t *testing.T) {
					buf := runExtract(t, fmt.Sprintf(tc.tmpl, deco, doc), opts)
					assert.Equal(t, []catalog.Message{
						{Singular: "doc", Line: tc.line, IsDocstring: true},
					}, buf.Messages)
				})
			}
		}
		for _, deco := range []string{"commands", "staticmethod"} {
			buf := runExtract(t, fmt.Sprintf(tc.tmpl, deco, `"""doc"""`), opts)
			assert.Empty(t, buf.Messages, "%s @%s", tc.name, deco)
		}
	}
}

func TestDocstringsOffByDefault(t *testing.T) {
	for _, tc := range plainTemplates {
		buf := runExtract(t, fmt.Sprintf(tc.tmpl, `"""doc"""`), Options{})
		assert.Empty(t, buf.Messages, tc.name)
	}
	for _, tc := range decoratedTemplates {
		for _, deco := range decoratorNames(tc.forClass) {
			buf := runExtract(t, fmt.Sprintf(tc.tmpl, deco, `"""doc"""`), Options{})
			assert.Empty(t, buf.Messages, "%s %s", tc.name, deco)
		}
	}
}
