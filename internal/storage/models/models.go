package models

import "time"

type QueryRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	QueryText  string    `json:"query"`
	Response   string    `json:"response"`
	Intents    []string  `json:"intents"`
	TableCount int       `json:"table_count"`
	LatencyMS  int       `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`

	Failures []QueryFailure `json:"failures,omitempty"`
}

type QueryFailure struct {
	ID      int    `json:"id"`
	QueryID string `json:"query_id"`
	Intent  string `json:"intent"`
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

type Feedback struct {
	ID        int       `json:"id"`
	QueryID   string    `json:"query_id"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type TranscriptRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Sentiment   string    `json:"sentiment"`
	Polarity    float64   `json:"polarity"`
	Summary     []string  `json:"summary"`
	Commitments int       `json:"commitments"`
	CreatedAt   time.Time `json:"created_at"`
}
