package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// chunkRow is one indexed text with its embedding.
type chunkRow struct {
	DocID     string
	Text      string
	Embedding []float32
}

// store persists (doc_id, text, embedding) rows in SQLite. Embeddings are
// little-endian float32 BLOBs.
type store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id    TEXT NOT NULL,
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL
);`

// openStore opens (or creates) the backing database. An empty path means a
// private in-memory database living as long as the index.
func openStore(path string) (*store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error { return s.db.Close() }

func (s *store) insert(ctx context.Context, docID, text string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks(doc_id, text, embedding) VALUES(?, ?, ?)`,
		docID, text, floatsToBytes(vec))
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

func (s *store) all(ctx context.Context) ([]chunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, text, embedding FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []chunkRow
	for rows.Next() {
		var r chunkRow
		var blob []byte
		if err := rows.Scan(&r.DocID, &r.Text, &blob); err != nil {
			return nil, err
		}
		r.Embedding = bytesToFloats(blob)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *store) count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func floatsToBytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesToFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
