package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"potextract/internal/catalog"
	"potextract/internal/config"
	"potextract/internal/extract"
	"potextract/internal/filewalker"
	"potextract/internal/keyword"
	"potextract/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version identifies the tool in the POT header's Generated-By field.
const Version = "3.0"

type options struct {
	commandDocstrings bool
	docstrings        bool
	excludeFiles      []string
	includeContext    bool
	noContext         bool
	outputDir         string
	outputFilename    string
	recursive         bool
	relativeToCwd     bool
	keywords          []string
	noDefaultKeywords bool
	omitEmpty         bool
	commentTag        string
	verbose           int
	version           bool
	width             int
	workers           int
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "potextract [OPTIONS] INFILE [INFILE ...]",
		Short: "Extract translatable strings from Python source into gettext catalogs",
		Long: `potextract statically extracts translatable message strings from Python
source files. It walks each file's syntax tree for calls to the configured
translation keywords and for qualifying docstrings, and writes one .pot
catalog per output location.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&opts.commandDocstrings, "command-docstrings", "c", false,
		"Extract all cog and command docstrings. Has no effect when used with -D.")
	flags.BoolVarP(&opts.docstrings, "docstrings", "D", false,
		"Extract all module, class, function and method docstrings.")
	flags.StringArrayVarP(&opts.excludeFiles, "exclude-files", "X", nil,
		"Exclude a glob of files, relative to the current working directory.")
	flags.BoolVarP(&opts.includeContext, "include-context", "n", true,
		"Include contextual comments for msgid entries. This is the default.")
	flags.BoolVarP(&opts.noContext, "no-context", "N", false,
		"Don't include contextual comments for msgid entries.")
	flags.StringVarP(&opts.outputDir, "output-dir", "O", cfg.OutputDir,
		"Output files will be placed in DIR. Use '.' to output next to each source file.")
	flags.StringVarP(&opts.outputFilename, "output-filename", "o", cfg.OutputFilename,
		"Rename the default output file.")
	flags.BoolVarP(&opts.recursive, "recursive", "r", false,
		"For directories passed as input, recurse through subdirectories as well.")
	flags.BoolVarP(&opts.relativeToCwd, "relative-to-cwd", "R", false,
		"Output directory is relative to the current working directory instead of each source file's directory.")
	flags.StringArrayVarP(&opts.keywords, "keyword", "k", nil,
		"Additional keyword spec, e.g. 'ngettext:1,2,2t'. Can be repeated.")
	flags.BoolVar(&opts.noDefaultKeywords, "no-default-keywords", false,
		"Do not register the built-in keyword specs.")
	flags.BoolVar(&opts.omitEmpty, "omit-empty", false,
		"Do not write catalogs that collected no messages.")
	flags.StringVar(&opts.commentTag, "comment-tag", cfg.CommentTag,
		"Prefix marking translator comments in the source.")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Be more verbose.")
	flags.BoolVarP(&opts.version, "version", "V", false,
		"Print the version of potextract and exit.")
	flags.IntVarP(&opts.width, "width", "w", cfg.Width,
		"Set the width of output reference lines to COLUMNS.")
	flags.IntVar(&opts.workers, "workers", cfg.WorkerCount,
		"Number of files parsed concurrently.")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options, args []string) error {
	if opts.version {
		fmt.Printf("potextract %s\n", Version)
		return nil
	}

	if opts.verbose > 0 {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if len(args) == 0 {
		return errors.New("at least one input file or directory is required")
	}

	specs := opts.keywords
	if !opts.noDefaultKeywords {
		specs = append(append([]string{}, keyword.DefaultSpecs...), opts.keywords...)
	}
	registry, err := keyword.ParseSpecs(specs)
	if err != nil {
		return fmt.Errorf("invalid keyword specifications: %w", err)
	}

	walker := &filewalker.Walker{
		Recursive: opts.recursive,
		Exclude:   opts.excludeFiles,
	}
	files, err := walker.Resolve(args)
	if err != nil {
		return err
	}

	ctx, cancel := setupContext()
	defer cancel()

	manager := catalog.NewManager(catalog.Options{
		OutputDir:      opts.outputDir,
		OutputFilename: opts.outputFilename,
		RelativeToCwd:  opts.relativeToCwd,
		OmitEmpty:      opts.omitEmpty,
		IncludeContext: opts.includeContext && !opts.noContext,
		Width:          opts.width,
		Generator:      "potextract " + Version,
	})

	extractor := extract.New(registry, extract.Options{
		Docstrings:    opts.docstrings,
		CmdDocstrings: opts.commandDocstrings,
		CommentTag:    opts.commentTag,
	})

	// Files are parsed concurrently into per-file buffers; the buffers are
	// merged into the catalogs strictly in input order so aggregation
	// stays deterministic.
	pool := worker.NewPool(opts.workers,
		func(ctx context.Context, path string) (*extract.Buffer, error) {
			log.Debug().Str("file", path).Msg("Working on file")
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			buffer := &extract.Buffer{}
			if err := extractor.ExtractFile(ctx, path, src, buffer); err != nil {
				return nil, err
			}
			return buffer, nil
		},
	)
	results := pool.Execute(ctx, files)

	if err := ctx.Err(); err != nil {
		return err
	}

	extracted := 0
	for _, result := range results {
		manager.SetCurrentFile(result.Input)
		if result.Err != nil {
			// A broken file is reported and skipped; the run goes on.
			log.Error().Err(result.Err).Str("file", result.Input).Msg("Extraction failed")
			continue
		}
		for _, msg := range result.Output.Messages {
			manager.AddEntry(msg)
		}
		extracted += len(result.Output.Messages)
	}

	if err := manager.Write(); err != nil {
		return fmt.Errorf("write catalogs: %w", err)
	}

	log.Info().
		Int("files", len(files)).
		Int("messages", extracted).
		Msg("Extraction complete")
	return nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}
