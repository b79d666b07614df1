package handlers

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]any{"name": "سلام", "count": 2})

	assertStatusCode(t, recorder, http.StatusCreated)
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["name"] != "سلام" || result["count"] != float64(2) {
		t.Errorf("unexpected body: %v", result)
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusNoContent, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, msgNoVideo)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, msgNoVideo)
}

func TestRespondPipelineError(t *testing.T) {
	_, nameErr := pipeline.NormalizeName("")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        &ai.ValidationError{Message: "الملف كبير جداً", Err: ai.ErrPayloadTooLarge},
			wantStatus: http.StatusBadRequest,
			wantError:  "الملف كبير جداً",
		},
		{
			name:       "invalid name",
			err:        nameErr,
			wantStatus: http.StatusBadRequest,
			wantError:  "يرجى إدخال اسم الإشارة",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("loading: %w", database.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantError:  msgSignNotFound,
		},
		{
			name:       "upstream",
			err:        &ai.UpstreamError{StatusCode: 500, Detail: "internal"},
			wantStatus: http.StatusBadGateway,
			wantError:  msgUpstream,
		},
		{
			name:       "unexpected",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "خطأ غير متوقع: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondPipelineError(recorder, tt.err)

			assertStatusCode(t, recorder, tt.wantStatus)
			assertJSONError(t, recorder, tt.wantError)
		})
	}
}

func TestRespondPipelineError_HidesUpstreamDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondPipelineError(recorder, &ai.UpstreamError{StatusCode: 401, Detail: "invalid api key sk-secret"})

	if strings.Contains(recorder.Body.String(), "sk-secret") {
		t.Errorf("upstream detail leaked: %s", recorder.Body.String())
	}
}

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		setup     func(r *http.Request)
		want      string
	}{
		{
			name: "derived from request",
			want: "http://example.com/media/avatars/%D8%B3%D9%84%D8%A7%D9%85.mp4",
		},
		{
			name:  "forwarded https",
			setup: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") },
			want:  "https://example.com/media/avatars/%D8%B3%D9%84%D8%A7%D9%85.mp4",
		},
		{
			name:  "tls",
			setup: func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			want:  "https://example.com/media/avatars/%D8%B3%D9%84%D8%A7%D9%85.mp4",
		},
		{
			name:      "public url wins",
			publicURL: "https://signs.example.org",
			want:      "https://signs.example.org/media/avatars/%D8%B3%D9%84%D8%A7%D9%85.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Web: config.WebConfig{PublicURL: tt.publicURL}}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			if got := avatarURL(cfg, req, "سلام.mp4"); got != tt.want {
				t.Errorf("avatarURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvatarURL_EscapesSpaces(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	got := avatarURL(nil, req, "صباح الخير.mp4")
	if !strings.HasSuffix(got, "/media/avatars/%D8%B5%D8%A8%D8%A7%D8%AD%20%D8%A7%D9%84%D8%AE%D9%8A%D8%B1.mp4") {
		t.Errorf("avatarURL() = %q", got)
	}
}

func TestReadUpload(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/", nil, "clip.webm", []byte("data"))
		got, err := readUpload(httptest.NewRecorder(), req)
		if err != nil {
			t.Fatalf("readUpload() error = %v", err)
		}
		if string(got.data) != "data" || got.filename != "clip.webm" {
			t.Errorf("readUpload() = %+v", got)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/", map[string]string{"prompt": "x"}, "", nil)
		if _, err := readUpload(httptest.NewRecorder(), req); !errors.Is(err, errNoUpload) {
			t.Errorf("expected errNoUpload, got %v", err)
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		if _, err := readUpload(httptest.NewRecorder(), req); !errors.Is(err, errNoUpload) {
			t.Errorf("expected errNoUpload, got %v", err)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", result["status"])
	}
}
