package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nikbrunner/gamecrate/internal/model"
)

// Bucket names
var (
	bucketFolders     = []byte("folders")
	bucketFavorites   = []byte("favorites")
	bucketSettings    = []byte("settings")
	bucketFavByFolder = []byte("fav_by_folder")
	bucketFavByGame   = []byte("fav_by_game")

	collectionBuckets = [][]byte{bucketFolders, bucketFavorites, bucketFavByFolder, bucketFavByGame}
)

// BoltStorage implements Repository using a bbolt key-value file.
// Values are JSON; the two index buckets map "<parent>\x00<favoriteID>" to nothing.
type BoltStorage struct {
	db   *bolt.DB
	path string
}

// NewBoltStorage opens (or creates) the bbolt file at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range append(collectionBuckets, bucketSettings) {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStorage{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *BoltStorage) Path() string {
	return s.path
}

// Close closes the database.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// View runs fn in a read-only transaction.
func (s *BoltStorage) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Update runs fn in a read-write transaction. bbolt serializes writers.
func (s *BoltStorage) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

func indexKey(parent, id string) []byte {
	return []byte(parent + "\x00" + id)
}

func indexPrefix(parent string) []byte {
	return []byte(parent + "\x00")
}

func (t *boltTx) get(bucket []byte, key string, dest any) error {
	v := t.tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return ErrNotFound
	}
	return json.Unmarshal(v, dest)
}

func (t *boltTx) put(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucket).Put([]byte(key), data)
}

// scanIndex returns the favorite ids stored under parent in an index bucket.
func (t *boltTx) scanIndex(bucket []byte, parent string) []string {
	prefix := indexPrefix(parent)
	var ids []string
	c := t.tx.Bucket(bucket).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		ids = append(ids, string(k[len(prefix):]))
	}
	return ids
}

func (t *boltTx) favoritesByIDs(ids []string) ([]model.Favorite, error) {
	favs := make([]model.Favorite, 0, len(ids))
	for _, id := range ids {
		f, err := t.GetFavorite(id)
		if err != nil {
			return nil, fmt.Errorf("load indexed favorite %s: %w", id, err)
		}
		favs = append(favs, f)
	}
	return favs, nil
}

func (t *boltTx) ListFolders() ([]model.Folder, error) {
	folders := []model.Folder{}
	err := t.tx.Bucket(bucketFolders).ForEach(func(_, v []byte) error {
		var f model.Folder
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		folders = append(folders, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(folders, func(a, b model.Folder) int {
		switch {
		case a.OlderThan(b):
			return -1
		case b.OlderThan(a):
			return 1
		default:
			return 0
		}
	})
	return folders, nil
}

func (t *boltTx) GetFolder(id string) (model.Folder, error) {
	var f model.Folder
	if err := t.get(bucketFolders, id, &f); err != nil {
		return model.Folder{}, err
	}
	return f, nil
}

func (t *boltTx) PutFolder(f model.Folder) error {
	return t.put(bucketFolders, f.ID, f)
}

func (t *boltTx) DeleteFolder(id string) error {
	b := t.tx.Bucket(bucketFolders)
	if b.Get([]byte(id)) == nil {
		return ErrNotFound
	}
	return b.Delete([]byte(id))
}

func (t *boltTx) GetFavorite(id string) (model.Favorite, error) {
	var f model.Favorite
	if err := t.get(bucketFavorites, id, &f); err != nil {
		return model.Favorite{}, err
	}
	return f, nil
}

func (t *boltTx) PutFavorite(f model.Favorite) error {
	if !f.Deleted {
		others, err := t.FavoritesByGame(f.GameID)
		if err != nil {
			return err
		}
		for _, o := range others {
			if o.ID != f.ID && !o.Deleted {
				return ErrDuplicateGame
			}
		}
	}

	if old, err := t.GetFavorite(f.ID); err == nil {
		if err := t.unindex(old); err != nil {
			return err
		}
	}

	if err := t.put(bucketFavorites, f.ID, f); err != nil {
		return err
	}
	if err := t.tx.Bucket(bucketFavByFolder).Put(indexKey(f.FolderID, f.ID), []byte{}); err != nil {
		return err
	}
	return t.tx.Bucket(bucketFavByGame).Put(indexKey(f.GameID, f.ID), []byte{})
}

func (t *boltTx) unindex(f model.Favorite) error {
	if err := t.tx.Bucket(bucketFavByFolder).Delete(indexKey(f.FolderID, f.ID)); err != nil {
		return err
	}
	return t.tx.Bucket(bucketFavByGame).Delete(indexKey(f.GameID, f.ID))
}

func (t *boltTx) DeleteFavorite(id string) error {
	f, err := t.GetFavorite(id)
	if err != nil {
		return err
	}
	if err := t.unindex(f); err != nil {
		return err
	}
	return t.tx.Bucket(bucketFavorites).Delete([]byte(id))
}

func (t *boltTx) FavoritesInFolder(folderID string) ([]model.Favorite, error) {
	favs, err := t.favoritesByIDs(t.scanIndex(bucketFavByFolder, folderID))
	if err != nil {
		return nil, err
	}
	model.SortBySortOrder(favs)
	return favs, nil
}

func (t *boltTx) FavoritesByGame(gameID string) ([]model.Favorite, error) {
	favs, err := t.favoritesByIDs(t.scanIndex(bucketFavByGame, gameID))
	if err != nil {
		return nil, err
	}
	sortByCreated(favs)
	return favs, nil
}

func (t *boltTx) Trash() ([]model.Favorite, error) {
	all, err := t.ListFavorites()
	if err != nil {
		return nil, err
	}
	trash := []model.Favorite{}
	for _, f := range all {
		if f.Deleted {
			trash = append(trash, f)
		}
	}
	sortByCreated(trash)
	return trash, nil
}

func (t *boltTx) ListFavorites() ([]model.Favorite, error) {
	favs := []model.Favorite{}
	err := t.tx.Bucket(bucketFavorites).ForEach(func(_, v []byte) error {
		var f model.Favorite
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		favs = append(favs, f)
		return nil
	})
	return favs, err
}

func (t *boltTx) GetSetting(key string) ([]byte, error) {
	v := t.tx.Bucket(bucketSettings).Get([]byte(key))
	if v == nil {
		return nil, ErrNotFound
	}
	// Bolt values are only valid for the life of the transaction.
	return bytes.Clone(v), nil
}

func (t *boltTx) PutSetting(key string, value []byte) error {
	return t.tx.Bucket(bucketSettings).Put([]byte(key), value)
}

func (t *boltTx) WipeCollection() error {
	for _, bucket := range collectionBuckets {
		if err := t.tx.DeleteBucket(bucket); err != nil {
			return err
		}
		if _, err := t.tx.CreateBucket(bucket); err != nil {
			return err
		}
	}
	return nil
}

func sortByCreated(favs []model.Favorite) {
	slices.SortStableFunc(favs, func(a, b model.Favorite) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
