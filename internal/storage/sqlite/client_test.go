package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/research-analyst/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "data", "analyst.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestQueryHistory(t *testing.T) {
	c := newTestClient(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{
		ID: "q1", SessionID: "s1", QueryText: "analyze TCS", Response: "r1",
		Intents: []string{"analyze"}, TableCount: 1, LatencyMS: 12, CreatedAt: base,
	}))
	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{
		ID: "q2", SessionID: "s1", QueryText: "transcript", Response: "r2",
		Intents: []string{"transcript"}, TableCount: 1, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{
		ID: "q3", SessionID: "s2", QueryText: "hello", CreatedAt: base.Add(2 * time.Minute),
	}))

	records, err := c.GetQueryHistory("s1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q2", records[0].ID)
	assert.Equal(t, "q1", records[1].ID)
	assert.Equal(t, []string{"analyze"}, records[1].Intents)
	assert.Equal(t, 12, records[1].LatencyMS)
	assert.True(t, base.Equal(records[1].CreatedAt))

	all, err := c.GetQueryHistory("", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "q3", all[0].ID)

	none, err := c.GetQueryHistory("unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueryFailures(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{ID: "q1", QueryText: "analyze XYZ", CreatedAt: time.Now()}))
	require.NoError(t, c.InsertQueryFailure(&models.QueryFailure{QueryID: "q1", Intent: "analyze", Subject: "XYZ", Error: "not found"}))

	failures, err := c.GetQueryFailures("q1")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "XYZ", failures[0].Subject)

	err = c.InsertQueryFailure(&models.QueryFailure{QueryID: "missing", Intent: "analyze", Error: "x"})
	assert.Error(t, err)
}

func TestStoreFeedback(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{ID: "q1", QueryText: "compare TCS INFY", CreatedAt: time.Now()}))

	assert.NoError(t, c.StoreFeedback(&models.Feedback{QueryID: "q1", Helpful: true}))
	assert.ErrorIs(t, c.StoreFeedback(&models.Feedback{QueryID: "nope"}), ErrNotFound)
}

func TestTranscripts(t *testing.T) {
	c := newTestClient(t)
	rec := &models.TranscriptRecord{
		ID: "t1", Title: "Q4 call", Content: "text", Sentiment: "Positive", Polarity: 0.4,
		Summary: []string{"revenue up"}, Commitments: 1, CreatedAt: time.Now(),
	}
	require.NoError(t, c.InsertTranscript(rec))

	rec.Sentiment = "Neutral"
	require.NoError(t, c.InsertTranscript(rec))

	got, err := c.GetTranscript("t1")
	require.NoError(t, err)
	assert.Equal(t, "Neutral", got.Sentiment)
	assert.Equal(t, []string{"revenue up"}, got.Summary)

	_, err = c.GetTranscript("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestTranscript(t *testing.T) {
	c := newTestClient(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := c.LatestTranscript()
	assert.ErrorIs(t, err, ErrNotFound)

	older := &models.TranscriptRecord{ID: "t1", Title: "Q3", Content: "old call", Sentiment: "Neutral", CreatedAt: base}
	newer := &models.TranscriptRecord{ID: "t2", Title: "Q4", Content: "new call", Sentiment: "Positive", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, c.InsertTranscript(older))
	require.NoError(t, c.InsertTranscript(newer))

	got, err := c.LatestTranscript()
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)
	assert.Equal(t, "new call", got.Content)

	older.CreatedAt = base.Add(2 * time.Hour)
	require.NoError(t, c.InsertTranscript(older))

	got, err = c.LatestTranscript()
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
}
