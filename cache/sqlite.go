package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/gosimple/slug"

	"github.com/h0rv/epub-stream-sub001/bookerr"
	"github.com/h0rv/epub-stream-sub001/page"
)

func init() {
	gob.Register(page.TextCommand{})
	gob.Register(page.RuleCommand{})
	gob.Register(page.RectCommand{})
	gob.Register(page.ImageObjectCommand{})
	gob.Register(page.PageChromeCommand{})
}

// SQLiteStore persists chapter pages to a single on-disk SQLite database,
// keyed by (profile id, chapter index). Entries survive restart and are
// naturally invalidated whenever the profile id changes, since that's half
// the primary key.
type SQLiteStore struct {
	conn *sqlite.Conn
}

// OpenSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures the cache table exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.KindOpenFailed, err, "opening sqlite cache %q", path)
	}
	s := &SQLiteStore{conn: conn}
	if err := sqlitex.ExecuteTransient(conn, `CREATE TABLE IF NOT EXISTS chapter_pages (
		profile_id TEXT NOT NULL,
		chapter_index INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (profile_id, chapter_index)
	)`, nil); err != nil {
		conn.Close()
		return nil, bookerr.Wrap(bookerr.KindOpenFailed, err, "creating sqlite cache schema")
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

// ShardKey returns a human-legible, filesystem-safe identifier for a
// profile id, for callers that want to name a log line or an adjacent
// on-disk artifact after a cache entry; it is never used as the actual
// lookup key (the hex digest is).
func ShardKey(profile page.PaginationProfileID) string {
	return slug.Make(hex.EncodeToString(profile[:8]))
}

func profileHex(profile page.PaginationProfileID) string {
	return hex.EncodeToString(profile[:])
}

func (s *SQLiteStore) LoadChapterPages(profile page.PaginationProfileID, chapterIndex int) ([]*page.RenderPage, bool) {
	var payload []byte
	found := false
	err := sqlitex.Execute(s.conn,
		`SELECT payload FROM chapter_pages WHERE profile_id = ? AND chapter_index = ?`,
		&sqlitex.ExecOptions{
			Args: []any{profileHex(profile), int64(chapterIndex)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				n := stmt.GetLen("payload")
				payload = make([]byte, n)
				stmt.GetBytes("payload", payload)
				return nil
			},
		})
	if err != nil || !found {
		return nil, false
	}
	pages, err := decodePages(payload)
	if err != nil {
		return nil, false
	}
	return pages, true
}

func (s *SQLiteStore) StoreChapterPages(profile page.PaginationProfileID, chapterIndex int, pages []*page.RenderPage) {
	payload, err := encodePages(pages)
	if err != nil {
		return
	}
	_ = sqlitex.Execute(s.conn,
		`INSERT INTO chapter_pages (profile_id, chapter_index, payload) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id, chapter_index) DO UPDATE SET payload = excluded.payload`,
		&sqlitex.ExecOptions{Args: []any{profileHex(profile), int64(chapterIndex), payload}})
}

func encodePages(pages []*page.RenderPage) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pages); err != nil {
		return nil, fmt.Errorf("encoding cached pages: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePages(data []byte) ([]*page.RenderPage, error) {
	var pages []*page.RenderPage
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pages); err != nil {
		return nil, fmt.Errorf("decoding cached pages: %w", err)
	}
	return pages, nil
}
