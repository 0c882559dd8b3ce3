package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/tree"
)

// SchemaVersion is stored in the meta table of every SQLite inventory.
const SchemaVersion = 1

// SQLiteStore keeps a whole inventory tree in a SQLite database, one row per
// node, ordered among its siblings by position.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) a SQLite inventory.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) createSchema() error {
	nodesSQL := `
		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			parent_id INTEGER REFERENCES nodes(id),
			position INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			host TEXT,
			port INTEGER,
			user TEXT,
			tags TEXT,
			notes TEXT,
			expanded INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := s.db.Exec(nodesSQL); err != nil {
		return fmt.Errorf("create nodes table: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, position)`); err != nil {
		return fmt.Errorf("create nodes index: %w", err)
	}

	metaSQL := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	if _, err := s.db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// Save replaces the stored tree with root in a single transaction.
func (s *SQLiteStore) Save(root *tree.Node[inventory.Item]) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM nodes`); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, parent_id, position, kind, name, host, port, user, tags, notes, expanded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	// Pre-order ids, so every parent row precedes its children.
	var nextID int64
	var insert func(n *tree.Node[inventory.Item], parent sql.NullInt64, position int) error
	insert = func(n *tree.Node[inventory.Item], parent sql.NullInt64, position int) error {
		nextID++
		id := nextID
		it := n.Value()
		tags, err := json.Marshal(it.Tags)
		if err != nil {
			return fmt.Errorf("encode tags of %q: %w", it.Name, err)
		}
		if _, err := stmt.Exec(id, parent, position, string(it.Kind), it.Name,
			it.Host, it.Port, it.User, string(tags), it.Notes, n.Expanded); err != nil {
			return fmt.Errorf("insert %q: %w", it.Name, err)
		}
		for i, c := range n.Children() {
			if err := insert(c, sql.NullInt64{Int64: id, Valid: true}, i); err != nil {
				return err
			}
		}
		return nil
	}
	if err = insert(root, sql.NullInt64{}, 0); err != nil {
		return err
	}

	meta := map[string]string{
		"schema_version": strconv.Itoa(SchemaVersion),
		"saved_at":       time.Now().UTC().Format(time.RFC3339),
		"node_count":     strconv.FormatInt(nextID, 10),
	}
	for k, v := range meta {
		if _, err = tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load rebuilds the stored tree. An empty database yields an empty
// inventory root.
func (s *SQLiteStore) Load() (*tree.Node[inventory.Item], error) {
	rows, err := s.db.Query(`
		SELECT id, parent_id, kind, name, host, port, user, tags, notes, expanded
		FROM nodes
		ORDER BY parent_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	type row struct {
		id     int64
		parent sql.NullInt64
		node   *tree.Node[inventory.Item]
	}
	var all []row
	byID := make(map[int64]*tree.Node[inventory.Item])
	for rows.Next() {
		var r row
		var kind, name string
		var host, user, tags, notes sql.NullString
		var port sql.NullInt64
		var expanded bool
		if err := rows.Scan(&r.id, &r.parent, &kind, &name, &host, &port, &user, &tags, &notes, &expanded); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		it := inventory.Item{
			Kind:  inventory.Kind(kind),
			Name:  name,
			Host:  host.String,
			Port:  int(port.Int64),
			User:  user.String,
			Notes: notes.String,
		}
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &it.Tags); err != nil {
				return nil, fmt.Errorf("decode tags of %q: %w", name, err)
			}
		}
		r.node = tree.New(it)
		r.node.Expanded = expanded
		byID[r.id] = r.node
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	if len(all) == 0 {
		return inventory.NewRoot(""), nil
	}

	var root *tree.Node[inventory.Item]
	for _, r := range all {
		if !r.parent.Valid {
			if root != nil {
				return nil, fmt.Errorf("%s: more than one root node", s.path)
			}
			root = r.node
			continue
		}
		parent, ok := byID[r.parent.Int64]
		if !ok {
			return nil, fmt.Errorf("%s: node %d has missing parent %d", s.path, r.id, r.parent.Int64)
		}
		if err := parent.Append(r.node); err != nil {
			return nil, fmt.Errorf("%s: node %d: %w", s.path, r.id, err)
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%s: no root node", s.path)
	}
	return root, nil
}

// CountNodes returns the number of stored nodes.
func (s *SQLiteStore) CountNodes() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// Meta returns a value from the meta table, or "" when unset.
func (s *SQLiteStore) Meta(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return v, nil
}

// LastSaved returns when the tree was last saved, or the zero time.
func (s *SQLiteStore) LastSaved() (time.Time, error) {
	v, err := s.Meta("saved_at")
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
