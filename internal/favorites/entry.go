package favorites

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"StreamCatalog/internal/catalog"
)

var ErrBadEntry = errors.New("favorites: empty entry")

// Entry is one stored favorite. Older builds stored bare title strings; those
// decode as Legacy with a nil Record. Any other element is kept in Unknown and
// written back unchanged.
type Entry struct {
	Legacy  string
	Record  *catalog.Title
	Unknown json.RawMessage
}

func (e Entry) IsLegacy() bool { return e.Record == nil && e.Unknown == nil }

func (e Entry) IsUnknown() bool { return e.Unknown != nil }

// Title is empty for unknown entries.
func (e Entry) Title() string {
	if e.Record != nil {
		return e.Record.Title
	}
	return e.Legacy
}

func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Record != nil:
		return json.Marshal(e.Record)
	case e.Unknown != nil:
		return e.Unknown, nil
	}
	return json.Marshal(e.Legacy)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrBadEntry
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = Entry{Legacy: s}
		return nil
	case '{':
		var t catalog.Title
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*e = Entry{Record: &t}
		return nil
	}
	if !json.Valid(b) {
		return fmt.Errorf("favorites: invalid entry %q", b)
	}
	*e = Entry{Unknown: append(json.RawMessage(nil), b...)}
	return nil
}

// decodeEntries reads the stored sequence. Elements that are neither strings
// nor objects are kept as unknown and counted in unknown.
func decodeEntries(data []byte) (entries []Entry, unknown int, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode favorites: %w", err)
	}

	entries = make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := e.UnmarshalJSON(r); err != nil {
			return nil, 0, fmt.Errorf("decode favorites: %w", err)
		}
		if e.IsUnknown() {
			unknown++
		}
		entries = append(entries, e)
	}
	return entries, unknown, nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

func indexOf(entries []Entry, title string) int {
	for i, e := range entries {
		if !e.IsUnknown() && e.Title() == title {
			return i
		}
	}
	return -1
}
