package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
)

func TestAnalyzeHandler_Match(t *testing.T) {
	env := newTestEnv(t)
	env.signs.AddSign(database.StoredSign{Name: "سلام", Description: "يد مفتوحة", VideoPath: "سلام.mp4"})
	if _, err := env.orch.RebuildCache(context.Background()); err != nil {
		t.Fatal(err)
	}
	env.matcher.sign = "سلام"
	env.matcher.reply = "الإشارة: سلام\nالتوضيح: تطابق الحركة"

	handler := NewAnalyzeHandler(env.config, env.orch)
	req := multipartRequest(t, http.MethodPost, "/api/v1/analyze", map[string]string{"prompt": "ignored"}, "clip.mp4", []byte("video"))
	recorder := httptest.NewRecorder()
	handler.Analyze(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response AnalyzeResponse
	parseJSONResponse(t, recorder, &response)
	if response.MatchedSign == nil || *response.MatchedSign != "سلام" {
		t.Errorf("matched_sign = %v", response.MatchedSign)
	}
	if response.AvatarURL == nil || *response.AvatarURL != "http://example.com/media/avatars/%D8%B3%D9%84%D8%A7%D9%85.mp4" {
		t.Errorf("avatar_url = %v", response.AvatarURL)
	}
	if response.Result != env.matcher.reply || response.Description != "يد مفتوحة تتحرك" {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestAnalyzeHandler_NoMatchReturnsNulls(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAnalyzeHandler(env.config, env.orch)

	recorder := httptest.NewRecorder()
	handler.Analyze(recorder, multipartRequest(t, http.MethodPost, "/api/v1/analyze", nil, "clip.mp4", []byte("v")))

	assertStatusCode(t, recorder, http.StatusOK)

	var raw map[string]any
	parseJSONResponse(t, recorder, &raw)
	for _, key := range []string{"matched_sign", "avatar_url"} {
		value, ok := raw[key]
		if !ok || value != nil {
			t.Errorf("%s = %v, want null", key, value)
		}
	}
}

func TestAnalyzeHandler_MissingVideo(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAnalyzeHandler(env.config, env.orch)

	recorder := httptest.NewRecorder()
	handler.Analyze(recorder, multipartRequest(t, http.MethodPost, "/api/v1/analyze", map[string]string{"prompt": "x"}, "", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, msgNoVideo)
	if env.describer.callCount() != 0 {
		t.Error("describer should not be called")
	}
}

func TestAnalyzeHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"too large", &ai.ValidationError{Message: "الملف كبير جداً", Err: ai.ErrPayloadTooLarge}, http.StatusBadRequest},
		{"upstream", &ai.UpstreamError{StatusCode: 500, Detail: "boom"}, http.StatusBadGateway},
		{"transport", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.describer.err = tt.err
			descriptions.Write(env.config.Storage.CachePath, []descriptions.Entry{{Name: "سلام", Description: "x"}})
			handler := NewAnalyzeHandler(env.config, env.orch)

			recorder := httptest.NewRecorder()
			handler.Analyze(recorder, multipartRequest(t, http.MethodPost, "/api/v1/analyze", nil, "clip.mp4", []byte("v")))

			assertStatusCode(t, recorder, tt.wantStatus)
			if env.matcher.calls != 0 {
				t.Error("matcher should not run after a describe failure")
			}
		})
	}
}
