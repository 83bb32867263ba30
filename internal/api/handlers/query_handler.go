package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/export"
	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/internal/query"
	"github.com/research-analyst/backend/internal/storage/models"
	"github.com/research-analyst/backend/internal/storage/sqlite"
	"github.com/research-analyst/backend/pkg/logger"
	"github.com/research-analyst/backend/pkg/utils"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type QueryHandler struct {
	chat           *Chat
	audit          AuditLog
	exportFileName string
}

func NewQueryHandler(chat *Chat, audit AuditLog, exportFileName string) *QueryHandler {
	return &QueryHandler{
		chat:           chat,
		audit:          audit,
		exportFileName: exportFileName,
	}
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	// Transcript, when set, is analyzed instead of the stored one.
	Transcript string `json:"transcript"`
}

func (h *QueryHandler) parse(c *fiber.Ctx) (queryRequest, error) {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return req, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	req.Query = strings.TrimSpace(req.Query)
	req.Transcript = strings.TrimSpace(req.Transcript)
	if req.Query == "" {
		return req, fiber.NewError(fiber.StatusBadRequest, "Query is required")
	}
	if req.SessionID == "" {
		req.SessionID = NewSessionID()
	}
	return req, nil
}

func (h *QueryHandler) run(c *fiber.Ctx, req queryRequest, channel string) (*query.QueryResponse, error) {
	response, err := h.chat.Ask(c.UserContext(), query.QueryRequest{
		Query:      req.Query,
		SessionID:  req.SessionID,
		Transcript: analysis.Transcript(req.Transcript),
	}, channel)
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		if query.IsAborted(err) {
			return nil, fiber.NewError(fiber.StatusGatewayTimeout, "Query timed out")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to process query")
	}
	return response, nil
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}

	response, err := h.run(c, req, "http")
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":         response.ID,
		"session_id": req.SessionID,
		"query":      response.Query,
		"response":   response.Response,
		"tables":     response.Tables,
		"intents":    response.Intents,
		"failures":   response.Failures,
		"latency_ms": response.LatencyMS,
	})
}

// ExportQuery answers the query and returns its tables as a workbook.
func (h *QueryHandler) ExportQuery(c *fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}

	response, err := h.run(c, req, "export")
	if err != nil {
		return err
	}

	data, err := export.Workbook(response.Tables)
	if errors.Is(err, export.ErrNoTables) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "Query produced no tables to export",
			"response": response.Response,
		})
	}
	if err != nil {
		logger.Error("Failed to build workbook", zap.String("query_id", response.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build workbook",
		})
	}

	metrics.ExportsTotal.WithLabelValues("http").Inc()
	metrics.ExportBytes.Observe(float64(len(data)))

	c.Set(fiber.HeaderContentType, export.MIMEType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, h.exportFileName))
	c.Set(fiber.HeaderETag, fmt.Sprintf(`"%s"`, utils.HashBytes(data)))
	c.Set("X-Query-ID", response.ID)
	c.Set("X-Session-ID", req.SessionID)

	return c.Send(data)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Query history is disabled",
		})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	records, err := h.audit.GetQueryHistory(c.Query("session_id"), limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	for i := range records {
		failures, err := h.audit.GetQueryFailures(records[i].ID)
		if err != nil {
			logger.Error("Failed to load query failures", zap.String("query_id", records[i].ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load query history")
		}
		records[i].Failures = failures
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}

func (h *QueryHandler) SubmitFeedback(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Feedback is disabled",
		})
	}

	var req struct {
		QueryID string `json:"query_id"`
		Helpful bool   `json:"helpful"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil || req.QueryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	err := h.audit.StoreFeedback(&models.Feedback{
		QueryID: req.QueryID,
		Helpful: req.Helpful,
		Comment: req.Comment,
	})
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown query",
		})
	}
	if err != nil {
		logger.Error("Failed to store feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Feedback recorded",
	})
}
