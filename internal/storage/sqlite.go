package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/gamecrate/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Repository using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"busy_timeout(5000)",
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_folders_created_at ON folders(created_at);

		CREATE TABLE IF NOT EXISTS favorites (
			id TEXT PRIMARY KEY NOT NULL,
			folder_id TEXT NOT NULL,
			game_id TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE RESTRICT
		);

		CREATE INDEX IF NOT EXISTS idx_favorites_folder_id ON favorites(folder_id, sort_order);
		CREATE INDEX IF NOT EXISTS idx_favorites_game_id ON favorites(game_id);
		CREATE INDEX IF NOT EXISTS idx_favorites_deleted ON favorites(deleted) WHERE deleted = 1;

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY NOT NULL,
			value BLOB NOT NULL
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 enforces one active favorite per game.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_active_game
			ON favorites(game_id) WHERE deleted = 0;
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLiteStorage) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{ctx: ctx, tx: tx})
}

// Update runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStorage) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// sqliteTx implements Tx over a database transaction.
type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

const favoriteColumns = "id, folder_id, game_id, sort_order, created_at, deleted"

func (t *sqliteTx) ListFolders() ([]model.Folder, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT id, name, created_at
		FROM folders
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		var f model.Folder
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.Name, &createdAt); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, createdAt)
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (t *sqliteTx) GetFolder(id string) (model.Folder, error) {
	var f model.Folder
	var createdAt int64
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT id, name, created_at FROM folders WHERE id = ?", id,
	).Scan(&f.ID, &f.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Folder{}, ErrNotFound
	}
	if err != nil {
		return model.Folder{}, err
	}
	f.CreatedAt = time.Unix(0, createdAt)
	return f, nil
}

func (t *sqliteTx) PutFolder(f model.Folder) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO folders (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at
	`, f.ID, f.Name, f.CreatedAt.UnixNano())
	return err
}

func (t *sqliteTx) DeleteFolder(id string) error {
	res, err := t.tx.ExecContext(t.ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (t *sqliteTx) GetFavorite(id string) (model.Favorite, error) {
	row := t.tx.QueryRowContext(t.ctx, "SELECT "+favoriteColumns+" FROM favorites WHERE id = ?", id)
	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Favorite{}, ErrNotFound
	}
	return f, err
}

func (t *sqliteTx) PutFavorite(f model.Favorite) error {
	deleted := 0
	if f.Deleted {
		deleted = 1
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO favorites (`+favoriteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_id = excluded.folder_id,
			game_id = excluded.game_id,
			sort_order = excluded.sort_order,
			created_at = excluded.created_at,
			deleted = excluded.deleted
	`, f.ID, f.FolderID, f.GameID, f.SortOrder, f.CreatedAt.UnixNano(), deleted)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateGame
	}
	return err
}

func (t *sqliteTx) DeleteFavorite(id string) error {
	res, err := t.tx.ExecContext(t.ctx, "DELETE FROM favorites WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (t *sqliteTx) FavoritesInFolder(folderID string) ([]model.Favorite, error) {
	return t.queryFavorites(
		"SELECT "+favoriteColumns+" FROM favorites WHERE folder_id = ? ORDER BY sort_order, created_at, id",
		folderID,
	)
}

func (t *sqliteTx) FavoritesByGame(gameID string) ([]model.Favorite, error) {
	return t.queryFavorites(
		"SELECT "+favoriteColumns+" FROM favorites WHERE game_id = ? ORDER BY created_at, id",
		gameID,
	)
}

func (t *sqliteTx) Trash() ([]model.Favorite, error) {
	return t.queryFavorites(
		"SELECT " + favoriteColumns + " FROM favorites WHERE deleted = 1 ORDER BY created_at, id",
	)
}

func (t *sqliteTx) ListFavorites() ([]model.Favorite, error) {
	return t.queryFavorites(
		"SELECT " + favoriteColumns + " FROM favorites ORDER BY folder_id, sort_order, created_at, id",
	)
}

func (t *sqliteTx) queryFavorites(query string, args ...any) ([]model.Favorite, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favs := []model.Favorite{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row scanner) (model.Favorite, error) {
	var f model.Favorite
	var createdAt int64
	var deleted int
	if err := row.Scan(&f.ID, &f.FolderID, &f.GameID, &f.SortOrder, &createdAt, &deleted); err != nil {
		return model.Favorite{}, err
	}
	f.CreatedAt = time.Unix(0, createdAt)
	f.Deleted = deleted == 1
	return f, nil
}

func (t *sqliteTx) GetSetting(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (t *sqliteTx) PutSetting(key string, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (t *sqliteTx) WipeCollection() error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM favorites"); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM folders")
	return err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
