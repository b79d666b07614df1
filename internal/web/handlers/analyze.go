package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
	"github.com/kozaktomas/sign-vision/internal/web/middleware"
)

// AnalyzeHandler serves the gesture recognition endpoint.
type AnalyzeHandler struct {
	config       *config.Config
	orchestrator *pipeline.Orchestrator
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(cfg *config.Config, orchestrator *pipeline.Orchestrator) *AnalyzeHandler {
	return &AnalyzeHandler{
		config:       cfg,
		orchestrator: orchestrator,
	}
}

// AnalyzeResponse is the analyze result. MatchedSign and AvatarURL are null
// when nothing matched.
type AnalyzeResponse struct {
	Result      string  `json:"result"`
	Description string  `json:"description"`
	MatchedSign *string `json:"matched_sign"`
	AvatarURL   *string `json:"avatar_url"`
}

// Analyze describes the uploaded video and matches it against the reference
// corpus. The optional "prompt" form field is accepted and ignored.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	video, err := readUpload(w, r)
	if errors.Is(err, errNoUpload) {
		respondError(w, http.StatusBadRequest, msgNoVideo)
		return
	}
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	result, err := h.orchestrator.Analyze(r.Context(), video.data, video.filename)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	resp := AnalyzeResponse{
		Result:      result.Result,
		Description: result.Description,
	}
	if result.MatchedSign != "" {
		resp.MatchedSign = &result.MatchedSign
	}
	if result.AvatarFile != "" {
		u := avatarURL(h.config, r, result.AvatarFile)
		resp.AvatarURL = &u
	}

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		log.Printf("analyze by %s: %d bytes, matched %q", sanitizeForLog(user.Username), len(video.data), sanitizeForLog(result.MatchedSign))
	}

	respondJSON(w, http.StatusOK, resp)
}
