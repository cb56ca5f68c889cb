package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one captured content item: its identifier and the rest of its body.
type Entry struct {
	ID   string
	Body json.RawMessage
}

// Snapshot maps content item identifiers to bodies.  It remembers insertion order so that a
// written data.json lists items the way they were captured, and replay happens in the same order.
type Snapshot struct {
	entries []Entry
	index   map[string]int
}

func New() *Snapshot {
	return &Snapshot{index: make(map[string]int)}
}

// Set records body under id.  An id seen before keeps its position and gets the new body.
func (s *Snapshot) Set(id string, body json.RawMessage) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[id]; ok {
		s.entries[i].Body = body
		return
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, Entry{ID: id, Body: body})
}

func (s *Snapshot) Get(id string) (json.RawMessage, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.entries[i].Body, true
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns the items in insertion order.  Callers must not modify the slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// AddItem splits the id out of a raw content item and records the remainder.
func (s *Snapshot) AddItem(item json.RawMessage) (string, error) {
	id, body, err := SplitID(item)
	if err != nil {
		return "", err
	}
	s.Set(id, body)
	return id, nil
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := quote(e.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(e.Body) == 0 {
			buf.WriteString("{}")
		} else {
			buf.Write(e.Body)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	fresh := New()
	err := walkObject(data, func(key string, value json.RawMessage) error {
		fresh.Set(key, value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot: couldn't parse snapshot: %w", err)
	}
	*s = *fresh
	return nil
}

// SplitID removes the top-level "id" field from a content item and returns it alongside the
// remaining body.  Other fields keep their order and bytes.
func SplitID(item json.RawMessage) (string, json.RawMessage, error) {
	var (
		id    string
		found bool
		buf   bytes.Buffer
	)

	buf.WriteByte('{')
	first := true
	err := walkObject(item, func(key string, value json.RawMessage) error {
		if key == "id" {
			if err := json.Unmarshal(value, &id); err != nil {
				return fmt.Errorf("id is not a string: %w", err)
			}
			found = true
			return nil
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := quote(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: bad content item: %w", err)
	}
	if !found || id == "" {
		return "", nil, fmt.Errorf("snapshot: content item has no id")
	}
	buf.WriteByte('}')

	return id, buf.Bytes(), nil
}

// walkObject calls fn for each member of a JSON object, in document order.
func walkObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err == nil {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

func quote(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
