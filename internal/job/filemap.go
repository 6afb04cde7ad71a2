package job

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FileEntry is one key/path pair of a FileMap.
type FileEntry struct {
	Key  string
	Path string
}

// FileMap is an insertion-ordered key -> path mapping. Positional
// placeholders such as {{ in_2 }} resolve against insertion order, so a
// plain Go map cannot be used here.
type FileMap []FileEntry

// Get returns the path for key and whether the key is present.
func (m FileMap) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Path, true
		}
	}
	return "", false
}

// Set appends the pair, replacing the path if the key already exists.
func (m *FileMap) Set(key, path string) {
	for i, e := range *m {
		if e.Key == key {
			(*m)[i].Path = path
			return
		}
	}
	*m = append(*m, FileEntry{Key: key, Path: path})
}

// Len returns the number of entries.
func (m FileMap) Len() int {
	return len(m)
}

// UnmarshalJSON decodes a JSON object into the map, preserving the order
// in which keys appear in the document.
func (m *FileMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	out := FileMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var path string
		if err := dec.Decode(&path); err != nil {
			return fmt.Errorf("value for key %q must be a string: %w", key, err)
		}
		out.Set(key, path)
	}

	*m = out
	return nil
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m FileMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		pathJSON, err := json.Marshal(e.Path)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(pathJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
