// Package store persists exchange history to SQLite so past questions,
// answers and their call logs survive restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"datanerd/internal/logging"
	"datanerd/internal/session"
)

// ExchangeRecord is one persisted exchange.
type ExchangeRecord struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Rounds        int       `json:"rounds"`
	HaltedAtLimit bool      `json:"halted_at_limit"`
	CallsJSON     string    `json:"calls_json"`
	ChartsJSON    string    `json:"charts_json"`
	TotalTokens   int       `json:"total_tokens"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store manages the exchange history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates or opens the exchange store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		rounds INTEGER NOT NULL DEFAULT 0,
		halted_at_limit INTEGER NOT NULL DEFAULT 0,
		calls_json TEXT,
		charts_json TEXT,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveExchange persists one finished exchange. Image bytes are not
// stored; the call log keeps the prompt that produced them.
func (s *Store) SaveExchange(result *session.ExchangeResult) error {
	callsJSON, err := json.Marshal(result.Calls)
	if err != nil {
		return fmt.Errorf("failed to serialize call log: %w", err)
	}
	chartsJSON, err := json.Marshal(result.Charts)
	if err != nil {
		return fmt.Errorf("failed to serialize charts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO exchanges (id, question, answer, rounds, halted_at_limit, calls_json, charts_json, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Question, result.Answer, result.Rounds,
		boolToInt(result.HaltedAtLimit), string(callsJSON), string(chartsJSON),
		result.Usage.TotalTokens, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}

	logging.StoreDebug("Saved exchange %s (%d rounds, %d tokens)", result.ID, result.Rounds, result.Usage.TotalTokens)
	return nil
}

// GetExchange loads one exchange by ID.
func (s *Store) GetExchange(id string) (*ExchangeRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, question, answer, rounds, halted_at_limit, calls_json, charts_json, total_tokens, created_at
		FROM exchanges WHERE id = ?`, id)

	record, err := scanExchange(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("exchange not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange: %w", err)
	}
	return record, nil
}

// ListExchanges returns the most recent exchanges, newest first.
func (s *Store) ListExchanges(limit int) ([]*ExchangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, question, answer, rounds, halted_at_limit, calls_json, charts_json, total_tokens, created_at
		FROM exchanges ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var records []*ExchangeRecord
	for rows.Next() {
		record, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns the number of stored exchanges.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(row rowScanner) (*ExchangeRecord, error) {
	var record ExchangeRecord
	var halted int
	if err := row.Scan(
		&record.ID, &record.Question, &record.Answer, &record.Rounds,
		&halted, &record.CallsJSON, &record.ChartsJSON,
		&record.TotalTokens, &record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.HaltedAtLimit = halted != 0
	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
