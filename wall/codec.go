package wall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// QueryParam is the query parameter that carries the encoded layout
const QueryParam = "holds"

// DecodeError reports a shared-state string that could not be turned into a
// HoldCollection. Stage is one of "unescape", "json" or "validate".
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode holds (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes a collection to a percent-encoded JSON array suitable
// for a single query parameter value
func Encode(c HoldCollection) string {
	if c == nil {
		c = HoldCollection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		// Only reachable with an invalid state or non-finite coordinate,
		// which the store never produces.
		return escapeComponent("[]")
	}
	return escapeComponent(string(data))
}

// escapeComponent percent-encodes like encodeURIComponent: spaces become
// %20 and the characters -_.!~*'() are kept literal
func escapeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*", "~"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}

// rawHold mirrors Hold with every field optional so presence and type can
// be checked before anything is trusted
type rawHold struct {
	ID    *string          `json:"id"`
	X     *json.RawMessage `json:"x"`
	Y     *json.RawMessage `json:"y"`
	State *json.RawMessage `json:"state"`
}

// Decode parses a percent-encoded layout. The empty string is an empty
// layout. Unknown fields on each hold are ignored.
func Decode(s string) (HoldCollection, error) {
	if s == "" {
		return HoldCollection{}, nil
	}
	unescaped, err := url.PathUnescape(s)
	if err != nil {
		return nil, &DecodeError{Stage: "unescape", Err: err}
	}
	return DecodeJSON([]byte(unescaped))
}

// DecodeJSON validates an already unescaped JSON layout
func DecodeJSON(data []byte) (HoldCollection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Stage: "json", Err: fmt.Errorf("trailing data after array")}
	}
	if raw == nil {
		return nil, &DecodeError{Stage: "validate", Err: fmt.Errorf("expected an array, got null")}
	}

	out := make(HoldCollection, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		h, err := validateHold(item)
		if err != nil {
			return nil, &DecodeError{Stage: "validate", Err: fmt.Errorf("hold[%d]: %w", i, err)}
		}
		if seen[h.ID] {
			return nil, &DecodeError{Stage: "validate", Err: fmt.Errorf("hold[%d]: duplicate id %q", i, h.ID)}
		}
		seen[h.ID] = true
		out = append(out, h)
	}
	return out, nil
}

func validateHold(item json.RawMessage) (Hold, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Hold{}, fmt.Errorf("not an object")
	}

	var r rawHold
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Hold{}, err
	}

	if r.ID == nil || *r.ID == "" {
		return Hold{}, fmt.Errorf("missing id")
	}
	x, err := finiteNumber("x", r.X)
	if err != nil {
		return Hold{}, err
	}
	y, err := finiteNumber("y", r.Y)
	if err != nil {
		return Hold{}, err
	}
	if r.State == nil {
		return Hold{}, fmt.Errorf("missing state")
	}
	var state HoldState
	if err := json.Unmarshal(*r.State, &state); err != nil {
		return Hold{}, fmt.Errorf("state: %w", err)
	}

	return Hold{ID: *r.ID, X: Round2(x), Y: Round2(y), State: state}, nil
}

func finiteNumber(field string, raw *json.RawMessage) (float64, error) {
	if raw == nil {
		return 0, fmt.Errorf("missing %s", field)
	}
	var v float64
	if err := json.Unmarshal(*raw, &v); err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s is not finite", field)
	}
	return v, nil
}

// ShareQuery returns the query string, including '?', for a layout
func ShareQuery(c HoldCollection) string {
	return "?" + QueryParam + "=" + Encode(c)
}

// ShareURL joins a base URL with the layout query, replacing any existing
// query and fragment on base
func ShareURL(base string, c HoldCollection) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	u.RawQuery = QueryParam + "=" + Encode(c)
	u.Fragment = ""
	return u.String(), nil
}

// RawParam returns the still-encoded holds value from a raw query string
// (without the leading '?'), as found in url.URL.RawQuery
func RawParam(rawQuery string) string {
	return ParamFromURL("?" + rawQuery)
}

// ParamFromURL extracts the still-encoded holds value from a full share
// link, a bare query string ("?holds=..."), or returns s unchanged when it
// is already a bare value
func ParamFromURL(s string) string {
	s = strings.TrimSpace(s)
	query := ""
	switch {
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return s
		}
		query = u.RawQuery
	case strings.HasPrefix(s, "?"):
		query = s[1:]
	case strings.HasPrefix(s, QueryParam+"="):
		query = s
	default:
		return s
	}
	for _, part := range strings.Split(query, "&") {
		if v, ok := strings.CutPrefix(part, QueryParam+"="); ok {
			return v
		}
	}
	return ""
}
