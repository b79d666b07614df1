package pipeline

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
)

func TestAnalyze_EndToEnd(t *testing.T) {
	completer := &staticCompleter{reply: "الإشارة: سلام\nالتوضيح: حركة اليد المفتوحة تطابق سلام"}
	f := newFixture(t, ai.NewMatcher(completer, time.Minute))
	f.describer.description = "يد مفتوحة تلوح، تشبه سلام"

	f.signs.AddSign(database.StoredSign{Name: "سلام", Description: "يد مفتوحة تلوح", VideoPath: "سلام.mp4"})
	if _, err := f.orch.RebuildCache(context.Background()); err != nil {
		t.Fatalf("RebuildCache() error = %v", err)
	}

	result, err := f.orch.Analyze(context.Background(), []byte("video"), "clip.mp4")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.MatchedSign != "سلام" {
		t.Errorf("MatchedSign = %q, want سلام", result.MatchedSign)
	}
	if result.AvatarFile != "سلام.mp4" {
		t.Errorf("AvatarFile = %q, want سلام.mp4", result.AvatarFile)
	}
	if result.Result != completer.reply {
		t.Errorf("Result should be the full reply, got %q", result.Result)
	}
	if result.Description != "يد مفتوحة تلوح، تشبه سلام video" {
		t.Errorf("Description = %q", result.Description)
	}
	if completer.calls != 1 {
		t.Errorf("expected one match request, got %d", completer.calls)
	}
}

func TestAnalyze_DescribeFailureSkipsMatch(t *testing.T) {
	matcher := &fakeMatcher{}
	f := newFixture(t, matcher)
	f.describer.err = &ai.UpstreamError{StatusCode: http.StatusInternalServerError, Detail: "boom"}

	_, err := f.orch.Analyze(context.Background(), []byte("video"), "clip.mp4")

	var upstreamErr *ai.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *ai.UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", upstreamErr.StatusCode)
	}
	if matcher.calls != 0 {
		t.Errorf("match should not run after a describe failure, ran %d times", matcher.calls)
	}
}

func TestAnalyze_NoCacheFile(t *testing.T) {
	completer := &staticCompleter{reply: "unused"}
	f := newFixture(t, ai.NewMatcher(completer, time.Minute))

	result, err := f.orch.Analyze(context.Background(), []byte("v"), "clip.webm")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.MatchedSign != "" || result.AvatarFile != "" {
		t.Errorf("expected no match, got %+v", result)
	}
	if result.Result != result.Description {
		t.Errorf("Result should fall back to the description, got %q", result.Result)
	}
	if completer.calls != 0 {
		t.Error("no match request expected for an empty corpus")
	}
}

func TestAnalyze_ReadsCacheOnEveryCall(t *testing.T) {
	matcher := &fakeMatcher{}
	f := newFixture(t, matcher)

	descriptions.Write(f.cachePath, []descriptions.Entry{{Name: "أ", Description: "1"}})
	if _, err := f.orch.Analyze(context.Background(), nil, "a.mp4"); err != nil {
		t.Fatal(err)
	}
	if len(matcher.refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(matcher.refs))
	}

	descriptions.Write(f.cachePath, []descriptions.Entry{{Name: "أ", Description: "1"}, {Name: "ب", Description: "2"}})
	if _, err := f.orch.Analyze(context.Background(), nil, "a.mp4"); err != nil {
		t.Fatal(err)
	}
	if len(matcher.refs) != 2 {
		t.Errorf("expected the updated cache to be read, got %d references", len(matcher.refs))
	}
}

func TestAnalyze_MatcherError(t *testing.T) {
	f := newFixture(t, &fakeMatcher{err: &ai.UpstreamError{Detail: "no content"}})
	descriptions.Write(f.cachePath, []descriptions.Entry{{Name: "أ", Description: "1"}})

	_, err := f.orch.Analyze(context.Background(), nil, "a.mp4")
	var upstreamErr *ai.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *ai.UpstreamError, got %v", err)
	}
}

func TestResolveAvatar(t *testing.T) {
	f := newFixture(t, nil)
	f.signs.AddSign(database.StoredSign{Name: "سلام", VideoPath: "سلام_ab12cd34.mp4"})
	f.signs.AddSign(database.StoredSign{Name: "بدون فيديو"})
	f.writeVideo(t, "شكرا.mp4", "x")
	f.writeVideo(t, "بدون فيديو.mov", "x")

	tests := []struct {
		name string
		sign string
		want string
	}{
		{"empty name", "", ""},
		{"stored video wins", "سلام", "سلام_ab12cd34.mp4"},
		{"directory fallback", "شكرا", "شكرا.mp4"},
		{"stored sign without video falls back", "بدون فيديو", "بدون فيديو.mov"},
		{"unknown", "غير موجود", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.orch.ResolveAvatar(context.Background(), tt.sign); got != tt.want {
				t.Errorf("ResolveAvatar(%q) = %q, want %q", tt.sign, got, tt.want)
			}
		})
	}
}

func TestResolveAvatar_StoreErrorFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.signs.GetError = errors.New("connection refused")
	f.writeVideo(t, "شكرا.mp4", "x")

	if got := f.orch.ResolveAvatar(context.Background(), "شكرا"); got != "شكرا.mp4" {
		t.Errorf("ResolveAvatar() = %q, want directory fallback", got)
	}
	if got := f.orch.ResolveAvatar(context.Background(), "سلام"); got != "" {
		t.Errorf("ResolveAvatar() = %q, want empty", got)
	}
}

func TestResolveAvatar_WithoutStore(t *testing.T) {
	f := newFixture(t, nil)
	orch := New(f.describer, f.matcher, nil, f.media, f.cachePath)
	f.writeVideo(t, "نعم.mp4", "x")

	if got := orch.ResolveAvatar(context.Background(), "نعم"); got != "نعم.mp4" {
		t.Errorf("ResolveAvatar() = %q", got)
	}
}

func TestRebuildCache(t *testing.T) {
	f := newFixture(t, nil)
	f.signs.AddSign(database.StoredSign{Name: "أول", Description: "وصف أول"})
	f.signs.AddSign(database.StoredSign{Name: "فارغ", Description: ""})
	f.signs.AddSign(database.StoredSign{Name: "أخير", Description: "وصف أخير"})

	n, err := f.orch.RebuildCache(context.Background())
	if err != nil {
		t.Fatalf("RebuildCache() error = %v", err)
	}
	if n != 2 {
		t.Errorf("RebuildCache() = %d entries, want 2", n)
	}

	want := []descriptions.Entry{
		{Name: "أخير", Description: "وصف أخير"},
		{Name: "أول", Description: "وصف أول"},
	}
	if got := f.cache(t); !reflect.DeepEqual(got, want) {
		t.Errorf("cache = %+v, want %+v", got, want)
	}
}

func TestRebuildCache_ListError(t *testing.T) {
	f := newFixture(t, nil)
	descriptions.Write(f.cachePath, []descriptions.Entry{{Name: "قديم", Description: "x"}})
	f.signs.ListError = errors.New("db down")

	if _, err := f.orch.RebuildCache(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := f.cache(t); len(got) != 1 || got[0].Name != "قديم" {
		t.Errorf("failed rebuild should leave the old cache, got %+v", got)
	}
}
