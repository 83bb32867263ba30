package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/ingestion"
	"github.com/research-analyst/backend/internal/storage/models"
	"github.com/research-analyst/backend/internal/storage/sqlite"
	"github.com/research-analyst/backend/pkg/logger"
)

// TranscriptReader loads a stored transcript by ID.
type TranscriptReader interface {
	GetTranscript(id string) (*models.TranscriptRecord, error)
}

type TranscriptHandler struct {
	processor *ingestion.Processor
	reader    TranscriptReader
}

func NewTranscriptHandler(processor *ingestion.Processor, reader TranscriptReader) *TranscriptHandler {
	return &TranscriptHandler{
		processor: processor,
		reader:    reader,
	}
}

func (h *TranscriptHandler) AnalyzeTranscript(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
		HTML  string `json:"html"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var (
		transcript analysis.Transcript
		title      = req.Title
		err        error
	)
	if req.HTML != "" {
		var pageTitle string
		transcript, pageTitle, err = h.processor.FromHTML(req.HTML)
		if title == "" {
			title = pageTitle
		}
	} else {
		transcript, err = h.processor.FromText(req.Text)
	}

	if errors.Is(err, ingestion.ErrEmptyTranscript) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Transcript is empty",
		})
	}
	if err != nil {
		logger.Error("Failed to read transcript", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read transcript",
		})
	}

	result, err := h.processor.Process(c.UserContext(), transcript, title)
	if err != nil {
		logger.Error("Failed to process transcript", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process transcript",
		})
	}

	return c.JSON(result)
}

func (h *TranscriptHandler) GetTranscript(c *fiber.Ctx) error {
	if h.reader == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Transcript storage is disabled")
	}

	id := c.Params("id")
	record, err := h.reader.GetTranscript(id)
	if errors.Is(err, sqlite.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Transcript not found")
	}
	if err != nil {
		logger.Error("Failed to load transcript", zap.String("transcript_id", id), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load transcript")
	}

	return c.JSON(record)
}
