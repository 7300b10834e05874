// Command scripture resolves Bible references against local datasets and
// remote providers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/resolver"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/sqlite"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/app"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/config"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/logging"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/validation"
)

const version = "1.0.0"

// CLI defines the command-line interface for scripture.
type CLI struct {
	// Global flags
	Config    string `short:"c" help:"Path to YAML config file" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`
	Dataset   string `name:"dataset" help:"Dataset file for the local source" type:"path"`

	Resolve ResolveCmd   `cmd:"" help:"Resolve a single reference"`
	Batch   BatchCmd     `cmd:"" help:"Resolve many references at once"`
	Sources SourcesCmd   `cmd:"" help:"List configured text sources"`
	Data    DatasetGroup `cmd:"" name:"dataset" help:"Dataset file operations"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// DatasetGroup contains dataset file operations.
type DatasetGroup struct {
	Info    DatasetInfoCmd    `cmd:"" help:"Show verse count, size and BLAKE3 digest of a dataset"`
	Convert DatasetConvertCmd `cmd:"" help:"Convert a dataset to JSON, JSON.xz or SQLite"`
}

// env is bound into every command's Run method.
type env struct {
	ctx    context.Context
	cli    *CLI
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	app    *app.App
}

// App builds the resolver on first use.
func (e *env) App() (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	a, err := app.New(e.cfg, app.WithLogger(logging.GetLogger()))
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

func (e *env) close() {
	if e.app != nil {
		_ = e.app.Close()
	}
}

func (e *env) source(name string) string {
	if name != "" {
		return name
	}
	return e.cfg.DefaultSource
}

// ResolveCmd resolves one reference.
type ResolveCmd struct {
	Reference []string `arg:"" help:"Reference, e.g. John 3:16"`
	Source    string   `short:"s" help:"Source name (default: config default_source)"`
	JSON      bool     `help:"Print the passage as JSON"`
}

func (c *ResolveCmd) Run(e *env) error {
	a, err := e.App()
	if err != nil {
		return err
	}

	text := strings.Join(c.Reference, " ")
	result := a.Resolver.ResolveOne(e.ctx, text, e.source(c.Source))
	if !result.OK() {
		return fmt.Errorf("%s: %s: %w", text, result.Status, result.Err)
	}

	if c.JSON {
		return writeJSON(e.stdout, result.Passage)
	}
	fmt.Fprintf(e.stdout, "%s (%s)\n%s\n", result.Passage.Reference, result.Passage.Source, result.Passage.Text)
	return nil
}

// BatchCmd resolves references from arguments and/or a file.
type BatchCmd struct {
	References []string `arg:"" optional:"" help:"References to resolve"`
	File       string   `short:"f" help:"File with one reference per line ('-' for stdin)" type:"path"`
	Source     string   `short:"s" help:"Source name (default: config default_source)"`
	JSON       bool     `help:"Print results as JSON"`
}

type batchItem struct {
	Index   int               `json:"index"`
	Input   string            `json:"input"`
	Status  resolver.Status   `json:"status"`
	Passage *resolver.Passage `json:"passage,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (c *BatchCmd) Run(e *env) error {
	refs := append([]string(nil), c.References...)
	if c.File != "" {
		lines, err := readRefs(c.File)
		if err != nil {
			return err
		}
		refs = append(refs, lines...)
	}
	if len(refs) == 0 {
		return errors.NewValidation("references", "no references given")
	}

	a, err := e.App()
	if err != nil {
		return err
	}
	results := a.Resolver.ResolveMany(e.ctx, refs, e.source(c.Source))
	if failed := countFailed(results); failed > 0 {
		logging.WarnContext(e.ctx, "batch has unresolved references", "failed", failed, "total", len(results))
	}

	if c.JSON {
		items := make([]batchItem, len(results))
		for i, r := range results {
			items[i] = batchItem{Index: r.Index, Input: r.Input, Status: r.Status, Passage: r.Passage}
			if r.Err != nil {
				items[i].Error = r.Err.Error()
			}
		}
		return writeJSON(e.stdout, items)
	}

	resolved := 0
	for _, r := range results {
		if r.OK() {
			resolved++
			fmt.Fprintf(e.stdout, "%-12s %s: %s\n", r.Status, r.Passage.Reference, r.Passage.Text)
			continue
		}
		fmt.Fprintf(e.stdout, "%-12s %q: %v\n", r.Status, r.Input, r.Err)
	}
	fmt.Fprintf(e.stdout, "\n%s of %s resolved\n", humanize.Comma(int64(resolved)), humanize.Comma(int64(len(results))))
	return nil
}

func countFailed(results []resolver.Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}

// readRefs reads one reference per line, skipping blanks and '#' comments.
func readRefs(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewIO("open", path, err)
		}
		defer f.Close()
		r = f
	}

	var refs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return refs, nil
}

// SourcesCmd lists the registered sources.
type SourcesCmd struct {
	Kind string `help:"Only list sources of this kind" enum:"all,local,remote" default:"all"`
	JSON bool   `help:"Print descriptors as JSON"`
}

func (c *SourcesCmd) Run(e *env) error {
	a, err := e.App()
	if err != nil {
		return err
	}
	all, err := a.Descriptors(e.ctx)
	if err != nil {
		return err
	}

	var ds []source.Descriptor
	for _, d := range all {
		if c.Kind == "all" || string(d.Kind) == c.Kind {
			ds = append(ds, d)
		}
	}
	if c.JSON {
		return writeJSON(e.stdout, ds)
	}

	fmt.Fprintf(e.stdout, "%-12s %-7s %-9s %-8s %s\n", "NAME", "KIND", "PROVIDER", "VERSION", "DESCRIPTION")
	for _, d := range ds {
		ver := d.Version
		if ver == "" {
			ver = "-"
		}
		marker := ""
		if strings.EqualFold(d.Name, e.cfg.DefaultSource) {
			marker = " (default)"
		}
		fmt.Fprintf(e.stdout, "%-12s %-7s %-9s %-8s %s%s\n", d.Name, d.Kind, d.Provider, ver, d.Description, marker)
	}
	fmt.Fprintf(e.stdout, "\nTotal: %d sources\n", len(ds))
	return nil
}

// DatasetInfoCmd summarizes a dataset file.
type DatasetInfoCmd struct {
	Path string `arg:"" help:"Dataset file (.json, .json.xz, .xml, .osis, .db)" type:"existingfile"`
}

func (c *DatasetInfoCmd) Run(e *env) error {
	d, err := source.LoadDataset(c.Path)
	if err != nil {
		return err
	}
	st, err := os.Stat(c.Path)
	if err != nil {
		return errors.NewIO("stat", c.Path, err)
	}

	fmt.Fprintf(e.stdout, "Path:     %s\n", c.Path)
	fmt.Fprintf(e.stdout, "Format:   %s\n", validation.FileTypeFromExtension(c.Path))
	fmt.Fprintf(e.stdout, "Size:     %s\n", humanize.Bytes(uint64(st.Size())))
	fmt.Fprintf(e.stdout, "Verses:   %s\n", humanize.Comma(int64(d.Len())))
	fmt.Fprintf(e.stdout, "Chapters: %s\n", humanize.Comma(int64(d.Chapters())))
	fmt.Fprintf(e.stdout, "BLAKE3:   %s\n", d.Digest())
	return nil
}

// DatasetConvertCmd rewrites a dataset in another format.
type DatasetConvertCmd struct {
	Input  string `arg:"" help:"Input dataset" type:"existingfile"`
	Output string `short:"o" required:"" help:"Output file (.json, .json.xz, .db)" type:"path"`
}

func (c *DatasetConvertCmd) Run(e *env) error {
	d, err := source.LoadDataset(c.Input)
	if err != nil {
		return err
	}

	switch validation.FileTypeFromExtension(c.Output) {
	case validation.FileTypeJSON, validation.FileTypeJSONXZ:
		if err := d.WriteJSON(c.Output); err != nil {
			return err
		}
	case validation.FileTypeSQLite:
		if err := writeSQLite(e.ctx, d, c.Output); err != nil {
			return err
		}
	default:
		return errors.NewUnsupported("output", fmt.Sprintf("cannot write %q", filepath.Base(c.Output)))
	}

	logging.InfoContext(e.ctx, "dataset converted", "input", c.Input, "output", c.Output, "verses", d.Len())
	fmt.Fprintf(e.stdout, "Wrote %s verses to %s\nBLAKE3: %s\n", humanize.Comma(int64(d.Len())), c.Output, d.Digest())
	return nil
}

func writeSQLite(ctx context.Context, d *source.Dataset, path string) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	if err := d.WriteSQLite(ctx, db); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	fmt.Fprintf(e.stdout, "scripture version %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("scripture"),
		kong.Description("Resolve Bible references from local datasets and remote providers"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.InitLoggerTo(stderr, level, format)

	if cli.Dataset != "" && !cfg.SetDataset(cli.Dataset) {
		return errors.NewValidation("dataset", "no local source is configured")
	}

	ctx = logging.WithRequestID(ctx, logging.NewRequestID())
	logging.DebugContext(ctx, "command started", "command", kctx.Command())

	e := &env{ctx: ctx, cli: cli, cfg: cfg, stdout: stdout, stderr: stderr}
	defer e.close()
	return kctx.Run(e)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "scripture: %v\n", err)
		stop()
		os.Exit(1)
	}
}
