package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
)

const (
	msgSignExistsFmt    = "الإشارة \"%s\" موجودة بالفعل"
	msgDescribeFailed   = "فشل تحليل الفيديو: "
	msgInvalidID        = "معرّف غير صالح"
	msgJobNotFound      = "العملية غير موجودة"
	msgJobAlreadyActive = "توجد عملية إعادة توليد قيد التنفيذ"
	msgJobFinished      = "العملية انتهت بالفعل"
)

// UsageSource reports accumulated model usage.
type UsageSource interface {
	GetUsage() ai.Usage
}

// SignsHandler serves the administrative reference store endpoints.
type SignsHandler struct {
	config       *config.Config
	orchestrator *pipeline.Orchestrator
	signs        database.SignReader
	jobManager   *JobManager
	reference    ai.VideoDescriber
	usage        UsageSource
}

// NewSignsHandler creates a new signs handler. reference describes videos
// for the regenerate job; usage may be nil.
func NewSignsHandler(cfg *config.Config, orchestrator *pipeline.Orchestrator, signs database.SignReader, jm *JobManager, reference ai.VideoDescriber, usage UsageSource) *SignsHandler {
	return &SignsHandler{
		config:       cfg,
		orchestrator: orchestrator,
		signs:        signs,
		jobManager:   jm,
		reference:    reference,
		usage:        usage,
	}
}

// SignResponse is one reference entry as returned by the API.
type SignResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoURL    *string   `json:"video_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *SignsHandler) signResponse(r *http.Request, s *database.StoredSign) SignResponse {
	resp := SignResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
	}
	if s.VideoPath != "" {
		u := avatarURL(h.config, r, s.VideoPath)
		resp.VideoURL = &u
	}
	return resp
}

// List returns every reference sign, newest first.
func (h *SignsHandler) List(w http.ResponseWriter, r *http.Request) {
	signs, err := h.signs.List(r.Context())
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	resp := make([]SignResponse, len(signs))
	for i := range signs {
		resp[i] = h.signResponse(r, &signs[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// Add creates a sign from the "name" and "video" form fields.
func (h *SignsHandler) Add(w http.ResponseWriter, r *http.Request) {
	video, uploadErr := readUpload(w, r)
	if uploadErr != nil && !errors.Is(uploadErr, errNoUpload) {
		respondPipelineError(w, uploadErr)
		return
	}

	name, err := pipeline.NormalizeName(r.FormValue("name"))
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	if uploadErr != nil {
		respondError(w, http.StatusBadRequest, msgChooseVideo)
		return
	}

	sign, err := h.orchestrator.AddSign(r.Context(), name, video.data, video.filename)
	if err != nil {
		h.respondMutationError(w, name, err)
		return
	}

	log.Printf("sign %q added", sanitizeForLog(sign.Name))
	respondJSON(w, http.StatusCreated, h.signResponse(r, sign))
}

// Replace updates the sign named in the URL, creating it when missing.
// The "video" field is required, "description" is optional.
func (h *SignsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	video, err := readUpload(w, r)
	if errors.Is(err, errNoUpload) {
		respondError(w, http.StatusBadRequest, msgChooseVideo)
		return
	}
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	sign, created, err := h.orchestrator.ReplaceSign(r.Context(), name, video.data, video.filename, r.FormValue("description"))
	if err != nil {
		h.respondMutationError(w, name, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, h.signResponse(r, sign))
}

// Delete removes a sign and its video.
func (h *SignsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	sign, err := h.orchestrator.DeleteSign(r.Context(), id)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	log.Printf("sign %q deleted", sanitizeForLog(sign.Name))
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "name": sign.Name})
}

// RebuildCache rewrites the description cache from the store.
func (h *SignsHandler) RebuildCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.orchestrator.RebuildCache(r.Context())
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"entries": n})
}

// respondMutationError adds the duplicate and describe-failure messages
// shown by the sign forms on top of respondPipelineError.
func (h *SignsHandler) respondMutationError(w http.ResponseWriter, name string, err error) {
	var upstreamErr *ai.UpstreamError
	var validationErr *ai.ValidationError

	switch {
	case errors.Is(err, database.ErrSignExists):
		respondError(w, http.StatusConflict, fmt.Sprintf(msgSignExistsFmt, name))
	case errors.As(err, &upstreamErr):
		log.Printf("describing sign %q failed: %s", sanitizeForLog(name), sanitizeForLog(upstreamErr.Error()))
		respondError(w, http.StatusBadGateway, msgDescribeFailed+msgUpstream)
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, msgDescribeFailed+validationErr.Message)
	default:
		respondPipelineError(w, err)
	}
}

// RegenerateRequest represents a regenerate job start request
type RegenerateRequest struct {
	Concurrency int `json:"concurrency"`
}

// Regenerate starts a background job describing every stored video again
// with the reference prompt.
func (h *SignsHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Concurrency <= 0 {
		req.Concurrency = constants.DefaultConcurrency
	}

	job, ok := h.jobManager.CreateJob(uuid.New().String(), req.Concurrency)
	if !ok {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":  msgJobAlreadyActive,
			"job_id": job.ID,
		})
		return
	}

	go h.runRegenerateJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// JobStatus returns the status of a regenerate job
func (h *SignsHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, msgJobNotFound)
		return
	}
	respondJSON(w, http.StatusOK, job.snapshot())
}

// JobEvents streams job events via SSE
func (h *SignsHandler) JobEvents(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*RegenerateJob).snapshot()
		},
	)
}

// CancelJob cancels a regenerate job
func (h *SignsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, msgJobNotFound)
		return
	}

	if !job.Cancel() {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":  msgJobFinished,
			"status": string(job.GetStatus()),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runRegenerateJob runs the regenerate job in the background
func (h *SignsHandler) runRegenerateJob(job *RegenerateJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	defer cancel()
	defer h.jobManager.expire(job.ID)

	job.mu.Lock()
	if job.CancelRequested {
		job.mu.Unlock()
		job.finish(JobStatusCancelled, nil, "")
		job.SendEvent(JobEvent{Type: "cancelled", Message: "تم إلغاء العملية"})
		return
	}
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "بدأت إعادة توليد الأوصاف"})

	var before ai.Usage
	if h.usage != nil {
		before = h.usage.GetUsage()
	}

	report, err := h.orchestrator.RedescribeSigns(ctx, h.reference, pipeline.BatchOptions{
		Concurrency: job.Concurrency,
		OnProgress: func(info pipeline.ProgressInfo) {
			job.mu.Lock()
			job.Processed = info.Current
			job.Total = info.Total
			job.Progress = int(float64(info.Current) / float64(info.Total) * 100)
			job.mu.Unlock()

			data := map[string]any{
				"current": info.Current,
				"total":   info.Total,
				"name":    info.Name,
			}
			if info.Err != nil {
				data["error"] = info.Err.Error()
			}
			job.SendEvent(JobEvent{Type: "progress", Data: data})
		},
	})

	var result *RegenerateResult
	if report != nil {
		result = &RegenerateResult{Updated: report.Updated}
		for _, f := range report.Failures {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Name, f.Err))
		}
		if h.usage != nil {
			after := h.usage.GetUsage()
			result.Usage = &UsageInfo{
				InputTokens:  after.InputTokens - before.InputTokens,
				OutputTokens: after.OutputTokens - before.OutputTokens,
				TotalCost:    after.TotalCost - before.TotalCost,
			}
		}
	}

	switch {
	case job.cancelRequested():
		job.finish(JobStatusCancelled, result, "")
		job.SendEvent(JobEvent{Type: "cancelled", Message: "تم إلغاء العملية", Data: result})
	case err != nil:
		message := err.Error()
		log.Printf("regenerate job %s failed: %s", job.ID, sanitizeForLog(message))
		job.finish(JobStatusFailed, result, message)
		job.SendEvent(JobEvent{Type: "job_error", Message: message})
	default:
		log.Printf("regenerate job %s completed: %d updated, %d failed", job.ID, result.Updated, len(result.Errors))
		job.finish(JobStatusCompleted, result, "")
		job.SendEvent(JobEvent{Type: "completed", Data: result})
	}
}
