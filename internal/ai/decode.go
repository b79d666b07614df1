package ai

import (
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// candidateEncoding is tried in order when decoding a response body.
// A nil newDecoder means UTF-8, which needs no transformation.
type candidateEncoding struct {
	name       string
	newDecoder func() *encoding.Decoder
}

// The API sometimes answers Arabic content in Windows-1256, so it is tried
// before the always-succeeding Latin-1.
var candidateEncodings = []candidateEncoding{
	{name: "utf-8"},
	{name: "windows-1256", newDecoder: charmap.Windows1256.NewDecoder},
	{name: "latin-1", newDecoder: charmap.ISO8859_1.NewDecoder},
}

// Decode converts a raw response body into a JSON value, trying each
// candidate encoding in turn. It fails only when none of them produces
// valid JSON text.
func Decode(raw []byte) (gjson.Result, error) {
	tried := make([]string, 0, len(candidateEncodings))
	for _, enc := range candidateEncodings {
		tried = append(tried, enc.name)

		text, ok := decodeAs(raw, enc)
		if !ok || !gjson.Valid(text) {
			continue
		}
		return gjson.Parse(text), nil
	}
	return gjson.Result{}, &DecodeError{Tried: tried}
}

func decodeAs(raw []byte, enc candidateEncoding) (string, bool) {
	if enc.newDecoder == nil {
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}
	// Decoders carry state, so each call gets its own.
	out, err := enc.newDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}
