package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const defaultPoolSize = 8

// ErrNotFound is returned when a section does not exist.
var ErrNotFound = errors.New("documentation section not found")

// Key addresses one section of a repository's documentation.
type Key struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Section string `json:"section"`
}

func (k Key) String() string {
	return k.Owner + "/" + k.Repo + "#" + k.Section
}

func (k Key) validate() error {
	if strings.TrimSpace(k.Owner) == "" || strings.TrimSpace(k.Repo) == "" || strings.TrimSpace(k.Section) == "" {
		return fmt.Errorf("invalid key %q: owner, repo and section are required", k.String())
	}
	return nil
}

type Section struct {
	Key
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store keeps generated documentation in SQLite.
type Store struct {
	pool *sqlitex.Pool
	now  func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	return open("file:" + path + "?mode=rwc")
}

// OpenMemory opens a named in-memory database shared by the pool's
// connections.
func OpenMemory(name string) (*Store, error) {
	return open("file:" + name + "?mode=memory&cache=shared")
}

func open(uri string) (*Store, error) {
	pool, err := sqlitex.NewPool(uri, sqlitex.PoolOptions{
		PoolSize: defaultPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening docs database: %w", err)
	}
	s := &Store{pool: pool, now: time.Now}
	if err := s.initTable(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	query := `
		CREATE TABLE IF NOT EXISTS documentation (
			owner TEXT NOT NULL,
			repo TEXT NOT NULL,
			section TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (owner, repo, section)
		)
	`
	return sqlitex.ExecuteTransient(conn, query, nil)
}

// Upsert stores content under key, replacing any previous version.
func (s *Store) Upsert(ctx context.Context, key Key, content string) (Section, error) {
	if err := key.validate(); err != nil {
		return Section{}, err
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Section{}, err
	}
	defer s.pool.Put(conn)

	updated := s.now().UTC()
	query := `
		INSERT INTO documentation (owner, repo, section, content, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner, repo, section) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`
	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		Args: []any{key.Owner, key.Repo, key.Section, content, updated.Format(time.RFC3339Nano)},
	})
	if err != nil {
		return Section{}, fmt.Errorf("upserting %s: %w", key, err)
	}
	return Section{Key: key, Content: content, UpdatedAt: updated}, nil
}

// Get returns one section or ErrNotFound.
func (s *Store) Get(ctx context.Context, key Key) (Section, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Section{}, err
	}
	defer s.pool.Put(conn)

	var (
		found   bool
		section Section
	)
	err = sqlitex.ExecuteTransient(conn,
		`SELECT content, updated_at FROM documentation WHERE owner = ? AND repo = ? AND section = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key.Owner, key.Repo, key.Section},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				section = Section{Key: key, Content: stmt.ColumnText(0), UpdatedAt: parseTime(stmt.ColumnText(1))}
				return nil
			},
		})
	if err != nil {
		return Section{}, err
	}
	if !found {
		return Section{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return section, nil
}

// List returns every section of owner/repo ordered by section name.
func (s *Store) List(ctx context.Context, owner, repo string) ([]Section, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	sections := []Section{}
	err = sqlitex.ExecuteTransient(conn,
		`SELECT section, content, updated_at FROM documentation WHERE owner = ? AND repo = ? ORDER BY section`,
		&sqlitex.ExecOptions{
			Args: []any{owner, repo},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sections = append(sections, Section{
					Key:       Key{Owner: owner, Repo: repo, Section: stmt.ColumnText(0)},
					Content:   stmt.ColumnText(1),
					UpdatedAt: parseTime(stmt.ColumnText(2)),
				})
				return nil
			},
		})
	return sections, err
}

// Delete removes one section; a missing section is ErrNotFound.
func (s *Store) Delete(ctx context.Context, key Key) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecuteTransient(conn,
		`DELETE FROM documentation WHERE owner = ? AND repo = ? AND section = ?`,
		&sqlitex.ExecOptions{Args: []any{key.Owner, key.Repo, key.Section}})
	if err != nil {
		return err
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
