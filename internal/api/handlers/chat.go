package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/internal/query"
	"github.com/research-analyst/backend/internal/session"
	"github.com/research-analyst/backend/internal/storage/models"
	"github.com/research-analyst/backend/pkg/logger"
)

const Greeting = "👋 Hello! I'm **Research Analyst**, your AI-powered equity research assistant. Ask me about any company."

// AuditLog stores answered queries. *sqlite.Client implements it.
type AuditLog interface {
	InsertQueryRecord(record *models.QueryRecord) error
	InsertQueryFailure(failure *models.QueryFailure) error
	GetQueryHistory(sessionID string, limit int) ([]models.QueryRecord, error)
	GetQueryFailures(queryID string) ([]models.QueryFailure, error)
	StoreFeedback(feedback *models.Feedback) error
}

// Chat runs one turn of a conversation: it logs the user message, asks the
// router, logs the answer and records the query. Logging and recording
// failures never fail the turn.
type Chat struct {
	engine   *query.Engine
	sessions session.Store
	audit    AuditLog
}

func NewChat(engine *query.Engine, sessions session.Store, audit AuditLog) *Chat {
	if sessions == nil {
		sessions = session.NewMemoryStore(0)
	}
	return &Chat{
		engine:   engine,
		sessions: sessions,
		audit:    audit,
	}
}

func NewSessionID() string {
	return uuid.New().String()
}

// Ask answers req.Query within req.SessionID. A failed query still gets an
// assistant entry so the history never ends on an unanswered turn.
func (ch *Chat) Ask(ctx context.Context, req query.QueryRequest, channel string) (*query.QueryResponse, error) {
	start := time.Now()
	log := ch.sessions.Open(req.SessionID)

	ch.appendEntry(ctx, log, req.SessionID, session.RoleUser, req.Query)

	resp, err := ch.engine.ProcessQuery(ctx, req)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		ch.appendEntry(context.WithoutCancel(ctx), log, req.SessionID, session.RoleAssistant, failureText(err))
		return nil, err
	}

	ch.appendEntry(ctx, log, req.SessionID, session.RoleAssistant, resp.Response)
	ch.record(req.SessionID, resp)

	metrics.QueryDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	return resp, nil
}

func failureText(err error) string {
	if query.IsAborted(err) {
		return "⚠️ Query timed out before an answer was ready."
	}
	return "⚠️ Failed to process query: " + err.Error()
}

func (ch *Chat) History(ctx context.Context, sessionID string) ([]session.Entry, error) {
	return ch.sessions.Open(sessionID).Entries(ctx)
}

func (ch *Chat) appendEntry(ctx context.Context, log session.Log, sessionID string, role session.Role, content string) {
	err := log.Append(ctx, session.Entry{Role: role, Content: content, CreatedAt: time.Now()})
	if err != nil {
		logger.Warn("Failed to append session entry",
			zap.String("session_id", sessionID),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		return
	}
	metrics.SessionMessages.WithLabelValues(string(role)).Inc()
}

func (ch *Chat) record(sessionID string, resp *query.QueryResponse) {
	if ch.audit == nil {
		return
	}

	intents := make([]string, 0, len(resp.Intents))
	for _, in := range resp.Intents {
		intents = append(intents, string(in))
	}

	err := ch.audit.InsertQueryRecord(&models.QueryRecord{
		ID:         resp.ID,
		SessionID:  sessionID,
		QueryText:  resp.Query,
		Response:   resp.Response,
		Intents:    intents,
		TableCount: resp.Tables.Len(),
		LatencyMS:  resp.LatencyMS,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record query", zap.String("query_id", resp.ID), zap.Error(err))
		return
	}

	for _, f := range resp.Failures {
		err := ch.audit.InsertQueryFailure(&models.QueryFailure{
			QueryID: resp.ID,
			Intent:  string(f.Intent),
			Subject: f.Subject,
			Error:   f.Error,
		})
		if err != nil {
			logger.Warn("Failed to record query failure", zap.String("query_id", resp.ID), zap.Error(err))
		}
	}
}
