// Package descriptions reads and writes the sign description cache: a JSON
// object mapping sign name to movement description, derived from the
// reference store and rewritten in full after every change to it.
package descriptions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Entry is one reference sign as seen by the matcher.
type Entry struct {
	Name        string
	Description string
}

// Parse decodes a cache document, keeping the key order of the file.
// A repeated key keeps its first position and its last value.
func Parse(data []byte) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("description cache is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("description cache must be a JSON object")
	}

	var entries []Entry
	index := make(map[string]int)
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			parseErr = fmt.Errorf("description for %q is not a string", key.String())
			return false
		}
		if i, ok := index[key.String()]; ok {
			entries[i].Description = value.String()
			return true
		}
		index[key.String()] = len(entries)
		entries = append(entries, Entry{Name: key.String(), Description: value.String()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return entries, nil
}

// Load reads the cache at path. A missing file is an empty corpus.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading description cache: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// Marshal renders entries as a pretty-printed UTF-8 JSON object in the given order.
func Marshal(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, e.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, e.Description); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{
		Width:    80,
		Indent:   "  ",
		SortKeys: false,
	}), nil
}

// writeString appends s as a JSON string without HTML escaping, so Arabic
// text and punctuation stay readable in the file.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding %q: %w", s, err)
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// Write replaces the cache at path with entries. The document is written to
// a temporary file in the same directory and renamed over the old one, so
// readers see either the previous or the new cache.
func Write(path string, entries []Entry) error {
	data, err := Marshal(entries)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing description cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing description cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting cache permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing description cache: %w", err)
	}
	return nil
}
