package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/collection"
	"github.com/nikbrunner/gamecrate/internal/culler"
	"github.com/nikbrunner/gamecrate/internal/exporter"
	"github.com/nikbrunner/gamecrate/internal/importer"
	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/picker"
	"github.com/nikbrunner/gamecrate/internal/search"
	"github.com/nikbrunner/gamecrate/internal/settings"
)

const searchLimit = 50

func runFolders(ctx context.Context, a *app, args []string) error {
	folders, err := a.coll.ListFolders(ctx)
	if err != nil {
		return err
	}
	protected, err := a.coll.ProtectedFolder(ctx)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Folders"))
	for _, f := range folders {
		favs, err := a.coll.ListActiveFavorites(ctx, f.ID)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %-24s %3d  %s", f.Name, len(favs), dimStyle.Render(f.ID))
		if f.ID == protected.ID {
			line += " " + warnStyle.Render("(protected)")
		}
		fmt.Println(line)
	}
	return nil
}

func runFolder(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usageError("folder add|rename|rm ...")
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return usageError("folder add <name>")
		}
		f, err := a.coll.AddFolder(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("Created folder " + f.Name + " (" + f.ID + ")"))
		return nil

	case "rename":
		if len(args) < 3 {
			return usageError("folder rename <folder> <name>")
		}
		f, err := a.folder(ctx, args[1])
		if err != nil {
			return err
		}
		renamed, err := a.coll.RenameFolder(ctx, f.ID, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("Renamed " + f.Name + " to " + renamed.Name))
		return nil

	case "rm":
		fs := flag.NewFlagSet("folder rm", flag.ContinueOnError)
		cascade := fs.Bool("cascade", false, "also delete the folder's favorites")
		pos, err := parseInterspersed(fs, args[1:])
		if err != nil || len(pos) != 1 {
			return usageError("folder rm <folder> [--cascade]")
		}
		f, err := a.folder(ctx, pos[0])
		if err != nil {
			return err
		}
		if err := a.coll.DeleteFolder(ctx, f.ID, collection.DeleteFolderOptions{Cascade: *cascade}); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return fmt.Errorf("%w (use --cascade to delete its favorites)", err)
			}
			return err
		}
		fmt.Println(okStyle.Render("Deleted folder " + f.Name))
		return nil

	default:
		return usageError("folder add|rename|rm ...")
	}
}

// folder resolves a folder argument against the current folders.
func (a *app) folder(ctx context.Context, arg string) (model.Folder, error) {
	folders, err := a.coll.ListFolders(ctx)
	if err != nil {
		return model.Folder{}, err
	}
	return resolveFolder(folders, arg)
}

// titles returns a catalog index for display, or an empty one when the
// catalog cannot be read.
func (a *app) titles() catalog.Index {
	records, err := a.loadCatalog()
	if err != nil {
		a.log.Warn("showing game ids only", "error", err)
		return catalog.Index{}
	}
	return catalog.NewIndex(records)
}

func runList(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usageError("list <folder>")
	}
	f, err := a.folder(ctx, args[0])
	if err != nil {
		return err
	}
	favs, err := a.coll.ListActiveFavorites(ctx, f.ID)
	if err != nil {
		return err
	}

	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}
	idx := a.titles()
	format := a.formatter(s)

	fmt.Println(headerStyle.Render(f.Name))
	if len(favs) == 0 {
		fmt.Println(dimStyle.Render("  (empty)"))
	}
	for i, fav := range favs {
		printFavorite(i, fav, idx, format)
	}
	return nil
}

func printFavorite(i int, fav model.Favorite, idx catalog.Index, format *catalog.Formatter) {
	price := ""
	if r, ok := idx[fav.GameID]; ok {
		price = format.Price(r)
	}
	fmt.Printf("  %3d  %-40s %s  %s\n", i, idx.Title(fav.GameID), price, dimStyle.Render(fav.ID))
}

func runTrash(ctx context.Context, a *app, args []string) error {
	favs, err := a.coll.ListTrash(ctx)
	if err != nil {
		return err
	}
	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}
	idx := a.titles()
	format := a.formatter(s)

	fmt.Println(headerStyle.Render("Trash"))
	if len(favs) == 0 {
		fmt.Println(dimStyle.Render("  (empty)"))
	}
	for i, fav := range favs {
		printFavorite(i, fav, idx, format)
	}
	return nil
}

// target returns the folder new favorites go to: the --folder argument,
// else the settings target, else the protected folder.
func (a *app) target(ctx context.Context, arg string, s settings.Settings) (model.Folder, error) {
	if arg != "" {
		return a.folder(ctx, arg)
	}
	protected, err := a.coll.ProtectedFolder(ctx)
	if err != nil {
		return model.Folder{}, err
	}
	id := s.Target(protected.ID)
	f, err := a.coll.GetFolder(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		// The selected folder was deleted since it was chosen.
		return protected, nil
	}
	return f, err
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	gameID := fs.String("id", "", "add this game id without searching")
	folderArg := fs.String("folder", "", "target folder")
	pos, err := parseInterspersed(fs, args)
	if err != nil || (*gameID == "" && len(pos) == 0) {
		return usageError("add <query> [--folder f] | add --id <gameId> [--folder f]")
	}

	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}
	target, err := a.target(ctx, *folderArg, s)
	if err != nil {
		return err
	}

	title := *gameID
	if *gameID == "" {
		rec, ok, err := a.pick(ctx, strings.Join(pos, " "), s)
		if err != nil || !ok {
			return err
		}
		*gameID = rec.ID
		title = rec.Title
	}

	fav, err := a.coll.AddFavorite(ctx, collection.AddFavoriteParams{
		FolderID: target.ID,
		GameID:   *gameID,
	})
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Added %s to %s (%s)", title, target.Name, fav.ID)))
	return nil
}

// pick searches the catalog for query and lets the user choose a record.
// A single match is chosen directly.
func (a *app) pick(ctx context.Context, query string, s settings.Settings) (catalog.Record, bool, error) {
	records, err := a.loadCatalog()
	if err != nil {
		return catalog.Record{}, false, err
	}

	results := search.FuzzySearchRecords(records, query, searchLimit)
	if len(results) == 0 {
		fmt.Printf("No games found for '%s'\n", query)
		return catalog.Record{}, false, nil
	}
	if len(results) == 1 {
		fmt.Printf("Found: %s\n", results[0].Record.Title)
		return results[0].Record, true, nil
	}

	favs, err := a.activeFavorites(ctx)
	if err != nil {
		return catalog.Record{}, false, err
	}
	owned := make(map[string]bool, len(favs))
	for _, f := range favs {
		owned[f.GameID] = true
	}

	return picker.Run(results, query, a.formatter(s), owned)
}

func runMove(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usageError("mv <favId> <folder>")
	}
	f, err := a.folder(ctx, args[1])
	if err != nil {
		return err
	}
	if _, err := a.coll.MoveFavorite(ctx, args[0], f.ID); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Moved to " + f.Name))
	return nil
}

func runReorder(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usageError("reorder <favId> <index>")
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return model.Validation(fmt.Sprintf("index %q is not a number", args[1]))
	}
	favs, err := a.coll.Reorder(ctx, args[0], idx)
	if err != nil {
		return err
	}
	titles := a.titles()
	for i, fav := range favs {
		marker := " "
		if fav.ID == args[0] {
			marker = okStyle.Render(">")
		}
		fmt.Printf("%s %3d  %s\n", marker, i, titles.Title(fav.GameID))
	}
	return nil
}

func runRemove(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	permanent := fs.Bool("permanent", false, "delete instead of moving to the trash")
	pos, err := parseInterspersed(fs, args)
	if err != nil || len(pos) != 1 {
		return usageError("rm <favId> [--permanent]")
	}

	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}
	hard := *permanent || s.PermanentDelete
	if err := a.coll.Remove(ctx, pos[0], hard); err != nil {
		return err
	}
	if hard {
		fmt.Println(okStyle.Render("Deleted " + pos[0]))
	} else {
		fmt.Println(okStyle.Render("Moved " + pos[0] + " to the trash"))
	}
	return nil
}

func runRestore(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usageError("restore <favId>")
	}
	fav, err := a.coll.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	f, err := a.coll.GetFolder(ctx, fav.FolderID)
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Restored to %s at position %d", f.Name, fav.SortOrder)))
	return nil
}

func runEmptyTrash(ctx context.Context, a *app, args []string) error {
	n, err := a.coll.EmptyTrash(ctx)
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Deleted %d favorites", n)))
	return nil
}

func runWipe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("wipe", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm")
	if err := fs.Parse(args); err != nil || !*yes {
		return usageError("wipe --yes")
	}
	if err := a.coll.WipeAll(ctx); err != nil {
		return err
	}
	if _, err := a.coll.EnsureDefaults(ctx); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Collection wiped; default folders recreated"))
	return nil
}

func runBrowse(ctx context.Context, a *app, args []string) error {
	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}
	cfg := s.Filter()

	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.BoolVar(&cfg.OnlyJapanese, "japanese", false, "only games supporting Japanese")
	fs.BoolVar(&cfg.OnlySale, "sale", false, "only games on sale")
	fs.BoolVar(&cfg.OnlyOverwhelminglyPositive, "positive", false, "only Overwhelmingly Positive reviews")
	fs.BoolVar(&cfg.OnlyMac, "mac", false, "only games running on macOS")
	fs.StringVar(&cfg.Year, "year", catalog.YearAll, "release year")
	fs.StringVar(&cfg.TitleQuery, "title", "", "title substring")
	fs.Int64Var(&cfg.MinPrice, "min", cfg.MinPrice, "minimum current price")
	fs.Int64Var(&cfg.MaxPrice, "max", cfg.MaxPrice, "maximum current price")
	include := fs.String("genre", "", "comma-separated genres to require")
	exclude := fs.String("exclude-genre", "", "comma-separated genres to exclude")
	mode := fs.String("mode", s.PriceMode, "sort key: current, normal, lowest or discount")
	order := fs.String("order", s.Order, "asc or desc")
	limit := fs.Int("limit", 30, "maximum rows to show, 0 for all")
	listGenres := fs.Bool("genres", false, "list the catalog's genres and exit")
	if err := fs.Parse(args); err != nil {
		return usageError("browse [flags]")
	}
	cfg.GenreInclude = genreSet(*include)
	cfg.GenreExclude = genreSet(*exclude)

	records, err := a.loadCatalog()
	if err != nil {
		return err
	}
	if *listGenres {
		fmt.Println(headerStyle.Render("Genres"))
		for _, g := range catalog.Genres(records) {
			fmt.Println("  " + g)
		}
		return nil
	}
	matched := catalog.Sort(catalog.Filter(records, cfg), catalog.ParsePriceMode(*mode), catalog.ParseOrder(*order))

	favs, err := a.activeFavorites(ctx)
	if err != nil {
		return err
	}
	owned := make(map[string]bool, len(favs))
	for _, f := range favs {
		owned[f.GameID] = true
	}

	format := a.formatter(s)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d of %d games", len(matched), len(records))))
	for i, r := range matched {
		if *limit > 0 && i >= *limit {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  … %d more", len(matched)-i)))
			break
		}
		star := " "
		if owned[r.ID] {
			star = warnStyle.Render("★")
		}
		fmt.Printf("%s %-8s %-40s %s\n", star, r.ID, r.Title, format.Price(r))
	}
	return nil
}

func genreSet(list string) map[string]bool {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	set := map[string]bool{}
	for _, g := range strings.Split(list, ",") {
		if g = strings.TrimSpace(g); g != "" {
			set[g] = true
		}
	}
	return set
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	folderArg := fs.String("folder", "", "export only this folder")
	pos, err := parseInterspersed(fs, args)
	if err != nil || len(pos) > 1 {
		return usageError("export [--folder f] [path]")
	}

	scope := exporter.ScopeAll
	if *folderArg != "" {
		f, err := a.folder(ctx, *folderArg)
		if err != nil {
			return err
		}
		scope = f.ID
	}

	outputPath, err := outputPath(pos, "json")
	if err != nil {
		return err
	}

	snap, err := exporter.Export(ctx, a.coll, scope, time.Now())
	if err != nil {
		return err
	}
	if err := exporter.WriteFile(outputPath, func(w io.Writer) error {
		return exporter.WriteSnapshot(w, snap)
	}); err != nil {
		return err
	}

	fmt.Printf("Exported %d favorites, %d folders to %s\n",
		len(snap.Favorites), len(snap.Folders), outputPath)
	return nil
}

func runExportHTML(ctx context.Context, a *app, args []string) error {
	if len(args) > 1 {
		return usageError("export-html [path]")
	}
	outputPath, err := outputPath(args, "html")
	if err != nil {
		return err
	}

	snap, err := exporter.Export(ctx, a.coll, exporter.ScopeAll, time.Now())
	if err != nil {
		return err
	}
	html := exporter.ExportHTML(snap, a.titles())
	if err := exporter.WriteFile(outputPath, func(w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	}); err != nil {
		return err
	}

	fmt.Printf("Exported %d favorites, %d folders to %s\n",
		len(snap.Favorites), len(snap.Folders), outputPath)
	return nil
}

func outputPath(pos []string, ext string) (string, error) {
	if len(pos) == 1 {
		return pos[0], nil
	}
	path, err := exporter.DefaultExportPath(ext)
	if err != nil {
		return "", fmt.Errorf("failed to get default export path: %w", err)
	}
	return path, nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usageError("import <file.json|file.html>")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var snap *model.Snapshot
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".html", ".htm":
		protected, err := a.coll.ProtectedFolder(ctx)
		if err != nil {
			return err
		}
		parsed, err := importer.ParseHTMLBookmarks(file, protected.Name)
		if err != nil {
			return fmt.Errorf("failed to parse HTML: %w", err)
		}
		if parsed.Ignored > 0 {
			fmt.Println(dimStyle.Render(fmt.Sprintf("Ignored %d links that are not store pages", parsed.Ignored)))
		}
		snap = parsed.Snapshot
	default:
		snap, err = importer.DecodeSnapshot(file)
		if err != nil {
			return err
		}
	}

	result, err := importer.New(a.coll, a.log).Import(ctx, snap)
	if result != nil {
		fmt.Printf("Imported %d favorites, %d folders created", result.Imported, result.FoldersCreated)
		if result.Skipped > 0 {
			fmt.Printf(" (%d already present)", result.Skipped)
		}
		fmt.Println()
		for _, e := range result.Errors {
			fmt.Println(warnStyle.Render(fmt.Sprintf("  %s/%s: %s", e.Folder, e.GameID, e.Error)))
		}
	}
	return err
}

func runCull(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("cull", flag.ContinueOnError)
	trash := fs.Bool("trash", false, "move the reported favorites to the trash")
	online := fs.Bool("online", false, "also check each store page")
	concurrency := fs.Int("concurrency", 8, "parallel store page checks")
	if err := fs.Parse(args); err != nil {
		return usageError("cull [--trash] [--online]")
	}

	records, err := a.loadCatalog()
	if err != nil {
		return err
	}
	idx := catalog.NewIndex(records)

	favs, err := a.activeFavorites(ctx)
	if err != nil {
		return err
	}

	results := culler.FindMissing(favs, idx)
	if *online {
		checked := culler.CheckStorePages(ctx, favs, culler.Options{Concurrency: *concurrency},
			func(completed, total int) {
				fmt.Fprintf(os.Stderr, "\rChecking store pages %d/%d", completed, total)
			})
		fmt.Fprintln(os.Stderr)
		for _, r := range checked {
			if r.Status != culler.Healthy {
				results = append(results, r)
			}
		}
	}

	if len(results) == 0 {
		fmt.Println(okStyle.Render("Every favorite is still listed"))
		return nil
	}

	seen := map[string]bool{}
	for _, r := range results {
		detail := r.Status.String()
		if r.Error != "" {
			detail += ": " + r.Error
		}
		fmt.Printf("  %-40s %s  %s\n", idx.Title(r.Favorite.GameID), warnStyle.Render(detail), dimStyle.Render(r.Favorite.ID))

		// Unreachable pages may be temporary.
		if !*trash || r.Status == culler.Unreachable || seen[r.Favorite.ID] {
			continue
		}
		seen[r.Favorite.ID] = true
		if err := a.coll.SoftDelete(ctx, r.Favorite.ID); err != nil {
			return err
		}
	}
	if *trash {
		fmt.Println(okStyle.Render(fmt.Sprintf("Moved %d favorites to the trash", len(seen))))
	}
	return nil
}

func runSettings(ctx context.Context, a *app, args []string) error {
	s, err := a.settings.Load(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if args[0] != "set" || len(args) != 3 {
			return usageError("settings [set <key> <value>]")
		}
		if !settings.IsKnown(args[1]) {
			return model.Validation(fmt.Sprintf("unknown setting %q (known: %s)",
				args[1], strings.Join(settings.Keys, ", ")))
		}
		if err := s.Set(args[1], args[2]); err != nil {
			return err
		}
		if args[1] == "selectedFolderId" && args[2] != "" {
			f, err := a.folder(ctx, args[2])
			if err != nil {
				return err
			}
			s.SelectedFolderID = f.ID
		}
		if err := a.settings.Save(ctx, s); err != nil {
			return err
		}
	}

	fmt.Println(headerStyle.Render("Settings"))
	for _, kv := range s.Fields() {
		fmt.Printf("  %-26s %s\n", kv[0], kv[1])
	}
	return nil
}
