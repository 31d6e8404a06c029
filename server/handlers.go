package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerkit/attribution"
	apperrors "github.com/kbukum/speakerkit/errors"
	"github.com/kbukum/speakerkit/transcription"
	"github.com/kbukum/speakerkit/version"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/version", s.handleVersion)
	s.engine.POST("/v1/attribute", s.handleAttribute)
}

// attributeRequest is the POST /v1/attribute body. Either a transcript
// (with optional word timings) or an audio path must be present.
type attributeRequest struct {
	AudioPath       string               `json:"audio_path"`
	Transcript      string               `json:"transcript"`
	Words           []transcription.Word `json:"words"`
	DurationSeconds float64              `json:"duration_seconds"`
	Language        string               `json:"language"`
	NumSpeakers     int                  `json:"num_speakers"`
}

func (s *Server) handleAttribute(c *gin.Context) {
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("request body is not valid JSON").WithCause(err))
		return
	}
	if req.Transcript == "" && req.AudioPath == "" {
		respondError(c, apperrors.InvalidInput("either transcript or audio_path is required"))
		return
	}

	result := s.attributor.Attribute(c.Request.Context(), attribution.Request{
		AudioPath:   req.AudioPath,
		Transcript:  req.Transcript,
		Words:       req.Words,
		Duration:    time.Duration(req.DurationSeconds * float64(time.Second)),
		Language:    req.Language,
		NumSpeakers: req.NumSpeakers,
	})
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) handleHealth(c *gin.Context) {
	backends := make(map[string]bool, len(s.backends))
	for _, b := range s.backends {
		backends[b.Name()] = b.IsAvailable(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backends": backends})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

// respondError derives status and body from an AppError, or sends a
// generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": apperrors.Internal("unexpected error", err),
	})
}
