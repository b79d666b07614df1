package ai

import "testing"

func TestMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.mp4", "video/mp4"},
		{"clip.webm", "video/webm"},
		{"clip.ogg", "video/ogg"},
		{"clip.mov", "video/quicktime"},
		{"clip.avi", "video/x-msvideo"},
		{"clip.mkv", "video/x-matroska"},
		{"CLIP.MOV", "video/quicktime"},
		{"archive.tar.mkv", "video/x-matroska"},
		{"clip.flv", "video/mp4"},
		{"clip", "video/mp4"},
		{"", "video/mp4"},
		{"clip.", "video/mp4"},
		{"dir.webm/clip", "video/mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := MIMEType(tt.filename); got != tt.want {
				t.Errorf("MIMEType(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsVideoExt(t *testing.T) {
	for _, ext := range []string{".mp4", "MOV", ".mkv"} {
		if !IsVideoExt(ext) {
			t.Errorf("IsVideoExt(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".txt", "", ".json"} {
		if IsVideoExt(ext) {
			t.Errorf("IsVideoExt(%q) = true, want false", ext)
		}
	}
}
