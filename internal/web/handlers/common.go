package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "بيانات غير صالحة"

// User-facing error messages.
const (
	msgNoVideo       = "لم يتم إرسال ملف فيديو"
	msgChooseVideo   = "يرجى اختيار ملف فيديو"
	msgUploadTooBig  = "حجم الطلب يتجاوز الحد المسموح"
	msgUpstream      = "تعذّر الحصول على رد صالح من خدمة التحليل، حاول مرة أخرى"
	msgSignNotFound  = "الإشارة غير موجودة"
	msgUnexpectedFmt = "خطأ غير متوقع: %v"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondPipelineError maps errors from describing, matching and the
// reference store to a status code and a localized message. Upstream
// details are logged, not returned.
func respondPipelineError(w http.ResponseWriter, err error) {
	var validationErr *ai.ValidationError
	var nameErr *pipeline.NameError
	var upstreamErr *ai.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &nameErr):
		respondError(w, http.StatusBadRequest, nameErr.Message)
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, msgSignNotFound)
	case errors.As(err, &upstreamErr):
		log.Printf("upstream model error: %s", sanitizeForLog(upstreamErr.Error()))
		respondError(w, http.StatusBadGateway, msgUpstream)
	default:
		log.Printf("unexpected error: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, fmt.Sprintf(msgUnexpectedFmt, err))
	}
}

// upload is a video read from a multipart form.
type upload struct {
	data     []byte
	filename string
}

var errNoUpload = errors.New("no video in request")

// readUpload parses a multipart body and returns the file in the "video"
// field. errNoUpload is returned when the field is absent.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &ai.ValidationError{Message: msgUploadTooBig, Err: ai.ErrPayloadTooLarge}
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, errNoUpload
		}
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	file, header, err := r.FormFile("video")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errNoUpload
	}
	if err != nil {
		return nil, fmt.Errorf("reading video field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading video: %w", err)
	}

	filename := header.Filename
	if filename == "" {
		filename = constants.DefaultVideoFilename
	}
	return &upload{data: data, filename: filename}, nil
}

// baseURL returns the absolute origin used in links handed to clients.
func baseURL(cfg *config.Config, r *http.Request) string {
	if cfg != nil && cfg.Web.PublicURL != "" {
		return cfg.Web.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// avatarURL returns the absolute URL of a file under the avatars directory.
func avatarURL(cfg *config.Config, r *http.Request, filename string) string {
	return baseURL(cfg, r) + "/media/" + constants.AvatarsSubdir + "/" + url.PathEscape(filename)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
