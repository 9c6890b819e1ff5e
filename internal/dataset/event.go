package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Edward-Muir/when/internal/validation"
)

// JSON member names owned by the enrichment tools.
const (
	keyName           = "name"
	keyFriendlyName   = "friendly_name"
	keyCategory       = "category"
	keyDifficulty     = "difficulty"
	keyWikipediaViews = "wikipedia_views"
	keyWikipediaURL   = "wikipedia_url"
)

// ownedKeys is also the order in which newly set members are appended to an object.
var ownedKeys = []string{keyName, keyFriendlyName, keyCategory, keyDifficulty, keyWikipediaViews, keyWikipediaURL}

// Event is one historical fact from a category file.
//
// Only the exported fields are interpreted. Every other member (year, description, image_url,
// ...) is kept verbatim along with the original member order, and is written back unchanged.
// A member whose value does not fit its field type is kept verbatim too and the field is left
// zero.
type Event struct {
	Name           string // Stable slug, unique within its category
	FriendlyName   string
	Category       Category
	Difficulty     Difficulty
	WikipediaURL   string
	WikipediaViews *int64

	keys []string
	raw  map[string]json.RawMessage
}

// DisplayName returns the human-readable label, falling back to the slug.
func (e *Event) DisplayName() string {
	if e.FriendlyName != "" {
		return e.FriendlyName
	}
	return e.Name
}

// HasReference reports whether the event already carries pageview data.
// Presence of the member counts, even if its value could not be parsed.
func (e *Event) HasReference() bool {
	return e.WikipediaViews != nil || slices.Contains(e.keys, keyWikipediaViews)
}

// Views returns the stored pageview count, or 0.
func (e *Event) Views() int64 {
	if e.WikipediaViews == nil {
		return 0
	}
	return *e.WikipediaViews
}

// SetReference stores a resolved article URL and its pageview total.
func (e *Event) SetReference(url string, views int64) {
	e.WikipediaURL = url
	e.WikipediaViews = &views
	delete(e.raw, keyWikipediaURL)
	delete(e.raw, keyWikipediaViews)
}

// SetDifficulty overwrites the difficulty label.
func (e *Event) SetDifficulty(d Difficulty) {
	e.Difficulty = d
	delete(e.raw, keyDifficulty)
}

// Clone returns a deep copy that can be modified without affecting e.
func (e *Event) Clone() *Event {
	c := *e
	if e.WikipediaViews != nil {
		v := *e.WikipediaViews
		c.WikipediaViews = &v
	}
	c.keys = slices.Clone(e.keys)
	if e.raw != nil {
		c.raw = make(map[string]json.RawMessage, len(e.raw))
		for k, v := range e.raw {
			c.raw[k] = slices.Clone(v)
		}
	}
	return &c
}

// record is the validation view of an Event.
type record struct {
	Name       string `json:"name" validate:"required"`
	Category   string `json:"category" validate:"omitempty,oneof=conflict cultural diplomatic disasters exploration infrastructure"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard very-hard"`
	URL        string `json:"wikipedia_url" validate:"omitempty,url"`
}

// Validate reports malformed members. Callers log the result; a bad record never aborts a run.
func (e *Event) Validate(v *validation.Validator) error {
	return v.Validate(record{
		Name:       e.Name,
		Category:   string(e.Category),
		Difficulty: string(e.Difficulty),
		URL:        e.WikipediaURL,
	})
}

// UnmarshalJSON implements json.Unmarshaler, recording member order.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("dataset: event must be a JSON object")
	}

	*e = Event{raw: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("dataset: unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("dataset: member %q: %w", key, err)
		}

		if !slices.Contains(e.keys, key) {
			e.keys = append(e.keys, key)
		}
		if !e.decodeOwned(key, value) {
			e.raw[key] = value
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// decodeOwned fills the typed field for key. It returns false when key is not owned or its
// value does not fit, in which case the caller keeps the raw value.
func (e *Event) decodeOwned(key string, value json.RawMessage) bool {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return false
	}

	var target any
	switch key {
	case keyName:
		target = &e.Name
	case keyFriendlyName:
		target = &e.FriendlyName
	case keyCategory:
		target = &e.Category
	case keyDifficulty:
		target = &e.Difficulty
	case keyWikipediaURL:
		target = &e.WikipediaURL
	case keyWikipediaViews:
		var n int64
		if err := json.Unmarshal(value, &n); err != nil {
			return false
		}
		e.WikipediaViews = &n
		delete(e.raw, key)
		return true
	default:
		return false
	}

	if err := json.Unmarshal(value, target); err != nil {
		return false
	}
	delete(e.raw, key)
	return true
}

// MarshalJSON implements json.Marshaler. Members are written in file order, followed by any
// owned member that was set after loading.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(encodeString(key))
		buf.WriteByte(':')
		buf.Write(value)
	}

	for _, key := range e.keys {
		value, err := e.memberValue(key)
		if err != nil {
			return nil, err
		}
		write(key, value)
	}
	for _, key := range ownedKeys {
		if slices.Contains(e.keys, key) || !e.ownedSet(key) {
			continue
		}
		value, err := e.memberValue(key)
		if err != nil {
			return nil, err
		}
		write(key, value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Event) memberValue(key string) ([]byte, error) {
	if slices.Contains(ownedKeys, key) && e.ownedSet(key) {
		return e.ownedValue(key)
	}
	if raw, ok := e.raw[key]; ok {
		return raw, nil
	}
	return e.ownedValue(key)
}

func (e *Event) ownedSet(key string) bool {
	switch key {
	case keyName:
		return e.Name != ""
	case keyFriendlyName:
		return e.FriendlyName != ""
	case keyCategory:
		return e.Category != ""
	case keyDifficulty:
		return e.Difficulty != ""
	case keyWikipediaURL:
		return e.WikipediaURL != ""
	case keyWikipediaViews:
		return e.WikipediaViews != nil
	}
	return false
}

func (e *Event) ownedValue(key string) ([]byte, error) {
	switch key {
	case keyName:
		return encodeString(e.Name), nil
	case keyFriendlyName:
		return encodeString(e.FriendlyName), nil
	case keyCategory:
		return encodeString(string(e.Category)), nil
	case keyDifficulty:
		return encodeString(string(e.Difficulty)), nil
	case keyWikipediaURL:
		return encodeString(e.WikipediaURL), nil
	case keyWikipediaViews:
		if e.WikipediaViews == nil {
			return []byte("null"), nil
		}
		return json.Marshal(*e.WikipediaViews)
	}
	return nil, fmt.Errorf("dataset: no value for member %q", key)
}

// encodeString encodes s as a JSON string without HTML escaping, so "&" and "<" in titles
// survive a rewrite byte-for-byte.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	return bytes.TrimRight(buf.Bytes(), "\n")
}
