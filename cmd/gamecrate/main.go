package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/collection"
	"github.com/nikbrunner/gamecrate/internal/config"
	"github.com/nikbrunner/gamecrate/internal/logger"
	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/settings"
	"github.com/nikbrunner/gamecrate/internal/storage"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "Usage: gamecrate %s\n", usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// usageError carries the usage line of a misused command.
type usageError string

func (u usageError) Error() string { return string(u) }

func run(ctx context.Context, cmd string, args []string) error {
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return nil
	}

	handler, ok := commands[cmd]
	if !ok {
		printHelp()
		return fmt.Errorf("unknown command %q", cmd)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return handler(ctx, a, args)
}

var commands = map[string]func(context.Context, *app, []string) error{
	"folders":     runFolders,
	"folder":      runFolder,
	"list":        runList,
	"trash":       runTrash,
	"add":         runAdd,
	"mv":          runMove,
	"reorder":     runReorder,
	"rm":          runRemove,
	"restore":     runRestore,
	"empty-trash": runEmptyTrash,
	"wipe":        runWipe,
	"browse":      runBrowse,
	"export":      runExport,
	"export-html": runExportHTML,
	"import":      runImport,
	"cull":        runCull,
	"settings":    runSettings,
}

func printHelp() {
	help := `gamecrate - catalog browser and favorites manager

Usage:
  gamecrate folders                          List folders (protected one marked)
  gamecrate folder add <name>                Create a folder
  gamecrate folder rename <folder> <name>    Rename a folder
  gamecrate folder rm <folder> [--cascade]   Delete a folder
  gamecrate list <folder>                    Favorites of a folder in order
  gamecrate trash                            Favorites in the trash
  gamecrate add <query> [--folder f]         Search the catalog, pick, add
  gamecrate add --id <gameId> [--folder f]   Add a game by id
  gamecrate mv <favId> <folder>              Move a favorite
  gamecrate reorder <favId> <index>          Move a favorite to a 0-based position
  gamecrate rm <favId> [--permanent]         Trash (or delete) a favorite
  gamecrate restore <favId>                  Restore a favorite from the trash
  gamecrate empty-trash                      Delete everything in the trash
  gamecrate wipe --yes                       Delete every folder and favorite
  gamecrate browse [flags]                   Filter and sort the catalog
  gamecrate browse --genres                  List the catalog's genres
  gamecrate export [--folder f] [path]       Export favorites as JSON
  gamecrate export-html [path]               Export favorites as bookmark HTML
  gamecrate import <file.json|file.html>     Import favorites
  gamecrate cull [--trash] [--online]        Find favorites that left the catalog
  gamecrate settings [set <key> <value>]     Show or change settings
  gamecrate help                             Show this help

<folder> accepts a folder id, its exact name, or a fuzzy name match.

Configuration:
  ~/.config/gamecrate/config.yaml, GAMECRATE_* environment variables
`
	fmt.Print(help)
}

// app holds the opened stores for one command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	repo     storage.Repository
	coll     *collection.Service
	settings *settings.Store
	closers  []io.Closer
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, logCloser, err := logger.Open(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	repo, err := storage.Open(cfg.Data.Backend, cfg.Data.Path)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Data.Backend, err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		coll:     collection.NewService(repo, log),
		settings: settings.NewStore(repo),
		closers:  []io.Closer{repo, logCloser},
	}

	if _, err := a.coll.EnsureDefaults(ctx); err != nil {
		a.close()
		return nil, err
	}

	log.Debug("opened collection", "backend", cfg.Data.Backend, "path", repo.Path())
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
}

// loadCatalog reads the catalog file from config.
func (a *app) loadCatalog() ([]catalog.Record, error) {
	records, err := catalog.LoadFile(a.cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", a.cfg.Catalog.Path, err)
	}
	a.log.Debug("loaded catalog", "path", a.cfg.Catalog.Path, "records", len(records))
	return records, nil
}

// formatter returns a price formatter for the settings locale, falling
// back to the configured locale.
func (a *app) formatter(s settings.Settings) *catalog.Formatter {
	locale := s.Locale
	if locale == "" {
		locale = a.cfg.Locale
	}
	return catalog.NewFormatter(catalog.ParseLocale(locale))
}

// activeFavorites returns every favorite outside the trash, folder by folder.
func (a *app) activeFavorites(ctx context.Context) ([]model.Favorite, error) {
	folders, err := a.coll.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	var all []model.Favorite
	for _, f := range folders {
		favs, err := a.coll.ListActiveFavorites(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, favs...)
	}
	return all, nil
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments, returning the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
