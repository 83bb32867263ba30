package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/storage/models"
	"github.com/research-analyst/backend/pkg/logger"
)

var ErrNotFound = errors.New("record not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		query_text TEXT NOT NULL,
		response TEXT,
		intents TEXT,
		table_count INTEGER DEFAULT 0,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_session ON query_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS query_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		intent TEXT NOT NULL,
		subject TEXT,
		error TEXT NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_failures_query ON query_failures(query_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);

	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		polarity REAL NOT NULL,
		summary TEXT,
		commitments INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, session_id, query_text, response, intents, table_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	intentsJSON, err := json.Marshal(record.Intents)
	if err != nil {
		return fmt.Errorf("failed to encode intents: %w", err)
	}

	_, err = c.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.QueryText,
		record.Response,
		string(intentsJSON),
		record.TableCount,
		record.LatencyMS,
		record.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("session_id", record.SessionID),
		zap.Int("tables", record.TableCount),
	)

	return nil
}

func (c *Client) InsertQueryFailure(failure *models.QueryFailure) error {
	query := `INSERT INTO query_failures (query_id, intent, subject, error) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		failure.QueryID,
		failure.Intent,
		failure.Subject,
		failure.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to insert query failure: %w", err)
	}

	return nil
}

// GetQueryHistory returns the newest records first. An empty sessionID lists
// every session.
func (c *Client) GetQueryHistory(sessionID string, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, session_id, query_text, response, intents, table_count, latency_ms, created_at
		FROM query_history
		WHERE (? = '' OR session_id = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	records := []models.QueryRecord{}
	for rows.Next() {
		var r models.QueryRecord
		var intentsJSON sql.NullString
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.QueryText, &r.Response, &intentsJSON, &r.TableCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if intentsJSON.Valid && intentsJSON.String != "" {
			if err := json.Unmarshal([]byte(intentsJSON.String), &r.Intents); err != nil {
				return nil, fmt.Errorf("failed to decode intents: %w", err)
			}
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query history: %w", err)
	}

	return records, nil
}

func (c *Client) GetQueryFailures(queryID string) ([]models.QueryFailure, error) {
	query := `SELECT id, query_id, intent, subject, error FROM query_failures WHERE query_id = ? ORDER BY id`

	rows, err := c.db.Query(query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get query failures: %w", err)
	}
	defer rows.Close()

	failures := []models.QueryFailure{}
	for rows.Next() {
		var f models.QueryFailure
		if err := rows.Scan(&f.ID, &f.QueryID, &f.Intent, &f.Subject, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

func (c *Client) StoreFeedback(feedback *models.Feedback) error {
	var exists int
	err := c.db.QueryRow(`SELECT COUNT(1) FROM query_history WHERE id = ?`, feedback.QueryID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up query: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("query %s: %w", feedback.QueryID, ErrNotFound)
	}

	query := `INSERT INTO feedback (query_id, helpful, comment, created_at) VALUES (?, ?, ?, ?)`

	helpful := 0
	if feedback.Helpful {
		helpful = 1
	}

	_, err = c.db.Exec(
		query,
		feedback.QueryID,
		helpful,
		feedback.Comment,
		time.Now().UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("query_id", feedback.QueryID),
		zap.Bool("helpful", feedback.Helpful),
	)

	return nil
}

func (c *Client) InsertTranscript(t *models.TranscriptRecord) error {
	query := `
		INSERT INTO transcripts (id, title, content, sentiment, polarity, summary, commitments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			sentiment = excluded.sentiment,
			polarity = excluded.polarity,
			summary = excluded.summary,
			commitments = excluded.commitments
	`

	summaryJSON, err := json.Marshal(t.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	_, err = c.db.Exec(
		query,
		t.ID,
		t.Title,
		t.Content,
		t.Sentiment,
		t.Polarity,
		string(summaryJSON),
		t.Commitments,
		t.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	logger.Debug("Transcript stored", zap.String("transcript_id", t.ID), zap.String("title", t.Title))
	return nil
}

func (c *Client) GetTranscript(id string) (*models.TranscriptRecord, error) {
	query := `SELECT id, title, content, sentiment, polarity, summary, commitments, created_at FROM transcripts WHERE id = ?`

	t, err := scanTranscript(c.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// LatestTranscript returns the most recently ingested transcript.
func (c *Client) LatestTranscript() (*models.TranscriptRecord, error) {
	query := `SELECT id, title, content, sentiment, polarity, summary, commitments, created_at FROM transcripts ORDER BY created_at DESC, rowid DESC LIMIT 1`

	t, err := scanTranscript(c.db.QueryRow(query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest transcript: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest transcript: %w", err)
	}
	return t, nil
}

func scanTranscript(row *sql.Row) (*models.TranscriptRecord, error) {
	var t models.TranscriptRecord
	var summaryJSON string
	var createdAt int64

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Content,
		&t.Sentiment,
		&t.Polarity,
		&summaryJSON,
		&t.Commitments,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(summaryJSON), &t.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	t.CreatedAt = time.UnixMilli(createdAt)

	return &t, nil
}
