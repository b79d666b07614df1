package ai

import (
	"strings"

	"github.com/kozaktomas/sign-vision/internal/constants"
)

// videoMIMETypes maps lowercase extensions to the MIME type sent in the data URL.
var videoMIMETypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"ogg":  "video/ogg",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
}

// MIMEType derives a video MIME type from the text after the last dot of
// filename. Unknown or missing extensions map to video/mp4.
func MIMEType(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return constants.DefaultVideoMIME
	}
	ext := strings.ToLower(filename[i+1:])
	if mime, ok := videoMIMETypes[ext]; ok {
		return mime
	}
	return constants.DefaultVideoMIME
}

// IsVideoExt reports whether ext (with or without leading dot) is in the MIME table.
func IsVideoExt(ext string) bool {
	_, ok := videoMIMETypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}
