// internal/site/sections.go
//
// Canonical decoding of page elements.
//
// The backend returns a page's elements in whichever shape the editor last
// saved: a JSON array, an object keyed by position ("0", "1", …), null, or
// either of those double-encoded as a JSON string.  Sections collapses all of
// them into one ordered slice at the boundary so nothing downstream has to
// guess.  Any other shape is a decode error.
package site

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ElementID accepts numeric and string ids from the editor.
type ElementID string

// UnmarshalJSON accepts 3, "hero-1", and null.
func (e *ElementID) UnmarshalJSON(b []byte) error {
	var o OrgID
	if err := o.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("element id: %w", err)
	}
	*e = ElementID(o)
	return nil
}

// Section is one element on a page.
type Section struct {
	ID    ElementID       `json:"id"`
	Type  string          `json:"type"`
	Props json.RawMessage `json:"props,omitempty"`
}

// Sections is always an ordered slice once decoded.
type Sections []Section

// ErrSectionsShape is returned for element payloads that are neither an
// array, an object, null, nor a string wrapping one of those.
var ErrSectionsShape = errors.New("page elements: unsupported shape")

// UnmarshalJSON normalises every supported shape into a slice.
func (s *Sections) UnmarshalJSON(b []byte) error {
	out, err := decodeSections(b, true)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON always emits an array, never null.
func (s Sections) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Section(s))
}

// Clone deep-copies the slice and every Props buffer.
func (s Sections) Clone() Sections {
	if s == nil {
		return nil
	}
	out := make(Sections, len(s))
	for i, sec := range s {
		out[i] = sec
		if sec.Props != nil {
			out[i].Props = append(json.RawMessage(nil), sec.Props...)
		}
	}
	return out
}

func decodeSections(b []byte, allowString bool) (Sections, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Sections{}, nil
	}

	switch b[0] {
	case '[':
		var list []Section
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("page elements array: %w", err)
		}
		return Sections(list), nil

	case '{':
		var keyed map[string]Section
		if err := json.Unmarshal(b, &keyed); err != nil {
			return nil, fmt.Errorf("page elements object: %w", err)
		}
		return orderKeyed(keyed), nil

	case '"':
		if !allowString {
			return nil, ErrSectionsShape
		}
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return nil, fmt.Errorf("page elements string: %w", err)
		}
		return decodeSections([]byte(inner), false)
	}
	return nil, ErrSectionsShape
}

// orderKeyed sorts numeric keys numerically and places any non-numeric keys
// after them in lexical order.
func orderKeyed(m map[string]Section) Sections {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(keys[i])
		nj, ej := strconv.Atoi(keys[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	out := make(Sections, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
