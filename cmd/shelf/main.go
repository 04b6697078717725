// Command shelf ingests ePub books and serves them over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/simp-lee/shelf"
	"github.com/simp-lee/shelf/internal/logging"
	"github.com/simp-lee/shelf/internal/server"
	"github.com/simp-lee/shelf/internal/store"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" env:"SHELF_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"text" env:"SHELF_LOG_FORMAT"`
}

// logger installs the process logger writing to w.
func (g *Globals) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.InitLogger(w, level, format), nil
}

// CLI defines the command-line interface for shelf.
var CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server"`
	Inspect InspectCmd `cmd:"" help:"Ingest a book and print its metadata"`
	Chapter ChapterCmd `cmd:"" help:"Print the content of one chapter"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Addr       string `help:"Listen address" default:":5001" env:"SHELF_ADDR"`
	DataDir    string `name:"data-dir" help:"Directory for uploads and covers" default:"./data" type:"path" env:"SHELF_DATA_DIR"`
	DB         string `name:"db" help:"SQLite database path (default <data-dir>/shelf.db)" type:"path" env:"SHELF_DB"`
	MaxUpload  string `name:"max-upload" help:"Maximum upload size" default:"50MiB" env:"SHELF_MAX_UPLOAD"`
	NoSanitize bool   `name:"no-sanitize" help:"Serve chapter markup without the display policy"`
}

func (c *ServeCmd) Run(g *Globals) error {
	log, err := g.logger(os.Stdout)
	if err != nil {
		return err
	}
	maxUpload, err := humanize.ParseBytes(c.MaxUpload)
	if err != nil {
		return fmt.Errorf("invalid --max-upload: %w", err)
	}

	cfg := server.Config{
		BooksDir:      filepath.Join(c.DataDir, "uploads", "books"),
		CoverDir:      filepath.Join(c.DataDir, "uploads", "covers"),
		MaxUploadSize: int64(maxUpload),
		SanitizeHTML:  !c.NoSanitize,
	}
	for _, dir := range []string{cfg.BooksDir, cfg.CoverDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := c.DB
	if dbPath == "" {
		dbPath = filepath.Join(c.DataDir, "shelf.db")
	}
	books, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer books.Close()

	engineCfg := shelf.DefaultConfig()
	engineCfg.CoverDir = cfg.CoverDir
	engineCfg.Logger = log
	engine := shelf.New(engineCfg)

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           server.New(cfg, engine, books),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup(c.Addr, c.DataDir, "db", dbPath, "max_upload", humanize.IBytes(maxUpload))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// InspectCmd ingests a file and prints what was found.
type InspectCmd struct {
	Path     string `arg:"" help:"Path to the ePub file" type:"existingfile"`
	Entries  bool   `help:"List the container entries"`
	JSON     bool   `name:"json" help:"Print the bundle as JSON"`
	CoverDir string `name:"cover-dir" help:"Keep the extracted cover in this directory" type:"path"`
	Ranked   bool   `help:"Rank navigation candidates instead of taking the first"`
}

func (c *InspectCmd) Run(g *Globals) error {
	log, err := g.logger(os.Stderr)
	if err != nil {
		return err
	}

	coverDir := c.CoverDir
	if coverDir == "" {
		tmp, err := os.MkdirTemp("", "shelf-cover-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		coverDir = tmp
	}

	cfg := shelf.DefaultConfig()
	cfg.CoverDir = coverDir
	cfg.Logger = log
	if c.Ranked {
		cfg.NavSelection = shelf.NavRanked
	}
	bundle, err := shelf.New(cfg).Parse(c.Path)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Title:\t%s\n", bundle.Title)
	fmt.Fprintf(tw, "Author:\t%s\n", bundle.Author)
	fmt.Fprintf(tw, "Language:\t%s\n", bundle.Language)
	if bundle.Publisher != "" {
		fmt.Fprintf(tw, "Publisher:\t%s\n", bundle.Publisher)
	}
	if bundle.Genre != "" {
		fmt.Fprintf(tw, "Genre:\t%s\n", bundle.Genre)
	}
	fmt.Fprintf(tw, "Published:\t%s\n", bundle.PublishDate.Format("2006-01-02"))
	if bundle.CoverImage != "" {
		fmt.Fprintf(tw, "Cover:\t%s\n", bundle.CoverImage)
	}
	fmt.Fprintf(tw, "Chapters:\t%d\n", bundle.TotalChapters)
	for _, w := range bundle.Warnings {
		fmt.Fprintf(tw, "Warning:\t%s\n", w)
	}
	tw.Flush()

	fmt.Println()
	for _, row := range bundle.TableOfContents {
		fmt.Printf("%4d  %s\n", row.Chapter, row.Title)
	}

	if c.Entries {
		return printEntries(c.Path)
	}
	return nil
}

func printEntries(path string) error {
	container, err := shelf.OpenContainer(path)
	if err != nil {
		return err
	}
	defer container.Close()

	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSIZE\tNAME")
	var total uint64
	for _, e := range container.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Kind, humanize.Bytes(e.Size), e.Name)
		total += e.Size
	}
	fmt.Fprintf(tw, "\t%s\t%d entries\n", humanize.Bytes(total), len(container.Entries()))
	return tw.Flush()
}

// ChapterCmd prints one chapter's sanitized markup.
type ChapterCmd struct {
	Path  string `arg:"" help:"Path to the ePub file" type:"existingfile"`
	Index int    `arg:"" help:"0-based chapter index"`
}

func (c *ChapterCmd) Run(g *Globals) error {
	log, err := g.logger(os.Stderr)
	if err != nil {
		return err
	}
	cfg := shelf.DefaultConfig()
	cfg.Logger = log

	ref := shelf.New(cfg).Chapter(c.Path, c.Index)
	fmt.Println(ref.Content)
	if !ref.Found() {
		return fmt.Errorf("%s: chapter %d: %s", c.Path, c.Index, ref.Status)
	}
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("shelf version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("shelf"),
		kong.Description("ePub library: ingest books, read chapters, serve an API"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
