package matrix

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/velmed/callscore/internal/db"
)

// Store persists the weight matrix document. Load returns (nil, nil) when no
// matrix has ever been saved.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc Document, updatedBy string) error
}

// PostgresStore keeps the matrix as a single JSONB row in lm.weight_matrix.
type PostgresStore struct {
	pool db.Pool
}

func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM lm.weight_matrix WHERE id = 1`,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "matrix: load")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "matrix: unmarshal config")
	}
	return &doc, nil
}

func (s *PostgresStore) Save(ctx context.Context, doc Document, updatedBy string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "matrix: marshal config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO lm.weight_matrix (id, config, updated_by, updated_at)
		 VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET config = $1, updated_by = $2, updated_at = now()`,
		raw, updatedBy,
	)
	return eris.Wrap(err, "matrix: save")
}

// SQLiteStore keeps a local copy of the matrix so single-host runs and the
// optimizer's dry mode work without Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "matrix: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "matrix: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS weight_matrix (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	config     TEXT NOT NULL,
	updated_by TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "matrix: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM weight_matrix WHERE id = 1`,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "matrix: sqlite load")
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, eris.Wrap(err, "matrix: sqlite unmarshal config")
	}
	return &doc, nil
}

func (s *SQLiteStore) Save(ctx context.Context, doc Document, updatedBy string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "matrix: sqlite marshal config")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weight_matrix (id, config, updated_by, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET config = excluded.config,
		   updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
		string(raw), updatedBy, time.Now().UTC(),
	)
	return eris.Wrap(err, "matrix: sqlite save")
}
