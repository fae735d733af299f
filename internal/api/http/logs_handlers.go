package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogBatch caps entries accepted per request
const maxLogBatch = 500

// FormLogEntry is a log line emitted by a form's display layer
type FormLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message" binding:"required"`
	SerialID  int64                  `json:"serial_id"`
	Asset     string                 `json:"asset"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// FormLogRequest is a batch of display layer logs
type FormLogRequest struct {
	Source  string         `json:"source" binding:"required"`
	Entries []FormLogEntry `json:"entries" binding:"required,dive"`
}

// StreamLogs forwards display layer logs into the process log
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req FormLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > maxLogBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many log entries", "max": maxLogBatch})
		return
	}

	logger := h.logger.Named("display").With(zap.String("source", req.Source))
	for _, entry := range req.Entries {
		logEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

func logEntry(logger *zap.Logger, entry FormLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+3)
	if entry.SerialID != 0 {
		fields = append(fields, zap.Int64("serial", entry.SerialID))
	}
	if entry.Asset != "" {
		fields = append(fields, zap.String("asset", entry.Asset))
	}
	if entry.Timestamp != "" {
		fields = append(fields, zap.String("client_timestamp", entry.Timestamp))
	}

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
