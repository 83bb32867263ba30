package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
	"unicode"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/export"
	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/internal/middleware/validation"
	"github.com/research-analyst/backend/internal/query"
	"github.com/research-analyst/backend/pkg/logger"
)

type frameWriter interface {
	WriteJSON(v interface{}) error
}

type WebSocketHandler struct {
	chat           *Chat
	exportFileName string
	maxQueryLength int
	queryTimeout   time.Duration
}

func NewWebSocketHandler(chat *Chat, exportFileName string, maxQueryLength int, queryTimeout time.Duration) *WebSocketHandler {
	if queryTimeout == 0 {
		queryTimeout = time.Minute
	}
	return &WebSocketHandler{
		chat:           chat,
		exportFileName: exportFileName,
		maxQueryLength: maxQueryLength,
		queryTimeout:   queryTimeout,
	}
}

type inboundMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	logger.Info("WebSocket connection established", zap.String("session_id", sessionID))
	metrics.WebsocketSessions.Inc()

	defer func() {
		metrics.WebsocketSessions.Dec()
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("session_id", sessionID))
	}()

	if err := h.sendGreeting(c, sessionID); err != nil {
		logger.Error("Failed to send greeting", zap.Error(err))
		return
	}

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "query" {
			continue
		}
		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}

		if err := h.handleMessage(c, sessionID, msg.Content); err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			break
		}
	}
}

// handleMessage answers one chat message. Only write failures are returned;
// query failures are reported to the client as error frames.
func (h *WebSocketHandler) handleMessage(w frameWriter, sessionID, content string) error {
	content, ok := validation.ValidateMessage(content, h.maxQueryLength)
	if !ok {
		return h.sendError(w, "Invalid query content")
	}

	logger.Info("Processing WebSocket query", zap.String("session_id", sessionID), zap.String("query", content))

	ctx, cancel := context.WithTimeout(context.Background(), h.queryTimeout)
	defer cancel()

	return h.streamResponse(ctx, w, sessionID, content)
}

func (h *WebSocketHandler) streamResponse(ctx context.Context, w frameWriter, sessionID, content string) error {
	if err := h.sendChunk(w, "status", "Processing query..."); err != nil {
		return err
	}

	response, err := h.chat.Ask(ctx, query.QueryRequest{Query: content, SessionID: sessionID}, "websocket")
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		if query.IsAborted(err) {
			return h.sendError(w, "Query timed out")
		}
		return h.sendError(w, "Failed to process query")
	}

	for _, chunk := range splitIntoChunks(response.Response) {
		if err := h.sendChunk(w, "chunk", chunk); err != nil {
			return err
		}
	}

	if err := h.sendComplete(w, sessionID, response); err != nil {
		return err
	}

	return h.sendExport(w, response)
}

func (h *WebSocketHandler) sendGreeting(w frameWriter, sessionID string) error {
	return w.WriteJSON(map[string]interface{}{
		"type":       "greeting",
		"content":    Greeting,
		"session_id": sessionID,
	})
}

func (h *WebSocketHandler) sendChunk(w frameWriter, msgType, content string) error {
	return w.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(w frameWriter, sessionID string, response *query.QueryResponse) error {
	return w.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": response.ID,
		"session_id": sessionID,
		"response":   response.Response,
		"intents":    response.Intents,
		"failures":   response.Failures,
		"tables":     response.Tables.Names(),
		"latency_ms": response.LatencyMS,
	})
}

func (h *WebSocketHandler) sendExport(w frameWriter, response *query.QueryResponse) error {
	data, err := export.Workbook(response.Tables)
	if errors.Is(err, export.ErrNoTables) {
		return nil
	}
	if err != nil {
		logger.Error("Failed to build workbook", zap.String("query_id", response.ID), zap.Error(err))
		return h.sendError(w, "Failed to build workbook")
	}

	metrics.ExportsTotal.WithLabelValues("websocket").Inc()
	metrics.ExportBytes.Observe(float64(len(data)))

	return w.WriteJSON(map[string]interface{}{
		"type":       "export",
		"message_id": response.ID,
		"file_name":  h.exportFileName,
		"mime_type":  export.MIMEType,
		"data":       base64.StdEncoding.EncodeToString(data),
	})
}

func (h *WebSocketHandler) sendError(w frameWriter, errorMsg string) error {
	return w.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

// splitIntoChunks cuts text after every whitespace run so the chunks
// concatenate back to the original, markdown line breaks included.
func splitIntoChunks(text string) []string {
	var chunks []string
	start := 0
	inSpace := false

	for i, r := range text {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			chunks = append(chunks, text[start:i])
			start = i
		}
		inSpace = space
	}

	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
