package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/descriptions"
)

func TestMatcher_Match_EmptyCorpus(t *testing.T) {
	upstream := newFakeUpstream(t, replyWith("unused"))
	client := newTestClient(t, upstream.server.URL)
	matcher := NewMatcher(client, time.Minute)

	description := "يد مفتوحة تتحرك للأمام"
	result, err := matcher.Match(context.Background(), description, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if result.Matched() {
		t.Errorf("expected no match, got %q", result.SignName)
	}
	if result.Explanation != description {
		t.Errorf("Explanation = %q, want the original description", result.Explanation)
	}
	if upstream.calls.Load() != 0 {
		t.Errorf("expected no upstream call, got %d", upstream.calls.Load())
	}
}

func TestMatcher_Match_SubstringAnywhereInReply(t *testing.T) {
	refs := []descriptions.Entry{
		{Name: "شكرا", Description: "يد على الصدر"},
		{Name: "سلام", Description: "يد مفتوحة"},
	}
	reply := "الإشارة: غير معروفة\nالتوضيح: الحركة تشبه سلام قليلاً لكنها غير واضحة"

	completer := &recordingCompleter{reply: reply}
	matcher := NewMatcher(completer, 2*time.Minute)

	result, err := matcher.Match(context.Background(), "وصف", refs)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if result.SignName != "سلام" {
		t.Errorf("SignName = %q, want سلام", result.SignName)
	}
	if result.Explanation != reply {
		t.Errorf("Explanation should be the full reply, got %q", result.Explanation)
	}
	if completer.timeouts[0] != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", completer.timeouts[0])
	}
}

func TestMatcher_Match_FirstHitInCorpusOrder(t *testing.T) {
	tests := []struct {
		name  string
		refs  []string
		reply string
		want  string
	}{
		{
			name:  "shorter name first wins inside longer name",
			refs:  []string{"سلام", "سلامة"},
			reply: "الإشارة: سلامة",
			want:  "سلام",
		},
		{
			name:  "longer name first wins",
			refs:  []string{"سلامة", "سلام"},
			reply: "الإشارة: سلامة",
			want:  "سلامة",
		},
		{
			name:  "corpus order beats reply order",
			refs:  []string{"ب", "أ"},
			reply: "أ ثم ب",
			want:  "ب",
		},
		{
			name:  "no known name",
			refs:  []string{"سلام", "شكرا"},
			reply: "الإشارة: غير معروفة",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := make([]descriptions.Entry, len(tt.refs))
			for i, name := range tt.refs {
				refs[i] = descriptions.Entry{Name: name, Description: "وصف " + name}
			}

			matcher := NewMatcher(&recordingCompleter{reply: tt.reply}, time.Minute)
			result, err := matcher.Match(context.Background(), "وصف الفيديو", refs)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if result.SignName != tt.want {
				t.Errorf("SignName = %q, want %q", result.SignName, tt.want)
			}
			if result.Matched() != (tt.want != "") {
				t.Errorf("Matched() = %v", result.Matched())
			}
		})
	}
}

func TestMatcher_Match_PromptContents(t *testing.T) {
	upstream := newFakeUpstream(t, replyWith("الإشارة: شكرا\nالتوضيح: تشابه"))
	client := newTestClient(t, upstream.server.URL)
	matcher := NewMatcher(client, time.Minute)

	refs := []descriptions.Entry{
		{Name: "سلام", Description: "يد مفتوحة"},
		{Name: "شكرا", Description: "يد على الصدر"},
	}
	if _, err := matcher.Match(context.Background(), "وصف الفيديو المرفوع", refs); err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	body := upstream.body()
	if body.Get("messages.#").Int() != 2 {
		t.Fatalf("expected 2 messages, got %d", body.Get("messages.#").Int())
	}
	if body.Get("messages.0.content").String() != matchSystemPrompt {
		t.Error("unexpected system prompt")
	}

	prompt := body.Get("messages.1.content").String()
	wantBlocks := "\n--- إشارة رقم 1: سلام ---\nيد مفتوحة\n\n--- إشارة رقم 2: شكرا ---\nيد على الصدر\n"
	for _, want := range []string{
		"== وصف الفيديو المرسل ==\nوصف الفيديو المرفوع\n\n",
		"== أوصاف الإشارات المرجعية ==\n" + wantBlocks + "\n\nالمطلوب:\n",
		"الإشارة: [اسم الإشارة أو 'غير معروفة']\nالتوضيح: [شرحك]\n",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "التوضيح: [شرحك]\n") {
		t.Error("prompt should end with the reply format line")
	}
}

func TestMatcher_Match_UpstreamError(t *testing.T) {
	upstream := newFakeUpstream(t, rawReply(http.StatusTooManyRequests, []byte(`{"error":{"message":"rate limited"}}`)))
	client := newTestClient(t, upstream.server.URL)
	matcher := NewMatcher(client, time.Minute)

	_, err := matcher.Match(context.Background(), "وصف", []descriptions.Entry{{Name: "سلام", Description: "x"}})

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", upstreamErr.StatusCode)
	}
}

func TestBuildReferenceBlock_Empty(t *testing.T) {
	if got := buildReferenceBlock(nil); got != "" {
		t.Errorf("expected empty block, got %q", got)
	}
}
