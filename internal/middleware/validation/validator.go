package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultMaxQueryLength = 2000

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQueryLength      int
	MaxTranscriptSize   int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = defaultMaxQueryLength
	}
	if cfg.MaxTranscriptSize == 0 {
		cfg.MaxTranscriptSize = 2 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" {
			allowed := false
			for _, allowedType := range cfg.AllowedContentTypes {
				if strings.Contains(contentType, allowedType) {
					allowed = true
					break
				}
			}
			if !allowed {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		path := c.Path()

		switch {
		case strings.HasPrefix(path, "/api/v1/query"):
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			query, ok := req["query"].(string)
			query = sanitizeString(query)
			if !ok || query == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query is required and must be a string",
				})
			}

			if len(query) > cfg.MaxQueryLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query exceeds maximum length",
				})
			}

			if containsXSS(query) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("query", query),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid query content",
				})
			}

			if transcript, _ := req["transcript"].(string); len(transcript) > cfg.MaxTranscriptSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Transcript exceeds maximum size",
				})
			}

		case strings.HasPrefix(path, "/api/v1/transcripts"):
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			text, _ := req["text"].(string)
			html, _ := req["html"].(string)
			if strings.TrimSpace(text) == "" && strings.TrimSpace(html) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Either text or html is required",
				})
			}

			if len(text) > cfg.MaxTranscriptSize || len(html) > cfg.MaxTranscriptSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Transcript exceeds maximum size",
				})
			}

		case strings.HasPrefix(path, "/api/v1/feedback"):
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if id, ok := req["query_id"].(string); !ok || id == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "query_id is required",
				})
			}
			if _, ok := req["helpful"].(bool); !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "helpful must be a boolean",
				})
			}
		}

		return c.Next()
	}
}

// ValidateMessage applies the query checks to a chat message that did not
// arrive over HTTP. A non-positive maxLength means the default limit.
func ValidateMessage(msg string, maxLength int) (string, bool) {
	if maxLength <= 0 {
		maxLength = defaultMaxQueryLength
	}
	msg = sanitizeString(msg)
	if msg == "" || len(msg) > maxLength || containsXSS(msg) {
		return msg, false
	}
	return msg, true
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
