// Package catalog provides a typed, tolerant view over the loosely
// structured dataset entries of an open-data catalog manifest (data.json).
//
// Real catalogs routinely violate their own schema, so extraction never
// fails on a missing optional field; only a missing title or an unusable
// publisher chain makes an entry malformed.
package catalog

import (
	"fmt"
	"strconv"
)

// None is the placeholder for absent scalar fields.
const None = "NONE"

// Contact is the contact point of a dataset. Missing parts are "".
type Contact struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// DistributionRecord is one downloadable or accessible representation of
// a dataset. A URL field is nil when the key is absent from the entry.
type DistributionRecord struct {
	Title       string
	DownloadURL *string
	AccessURL   *string
}

// DatasetRecord is a read-only view over one manifest entry.
type DatasetRecord struct {
	Identifier    string
	Title         string
	License       string
	ProgramCodes  Tuple
	BureauCodes   Tuple
	AccessLevel   string
	Contact       Contact
	Publisher     *Publisher
	PublisherPath Tuple
	Keywords      []string
	Distributions []DistributionRecord
	LandingPage   string

	Raw map[string]any
}

// ParseRecord extracts a DatasetRecord from a decoded manifest entry,
// applying defaults for absent fields. The returned error matches
// ErrMalformedRecord.
func ParseRecord(raw any) (*DatasetRecord, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, malformed("", "entry is %T, not an object", raw)
	}

	title, ok := m["title"].(string)
	if !ok {
		if _, present := m["title"]; present {
			return nil, malformed("title", "not a string")
		}
		return nil, malformed("title", "missing")
	}

	pub, err := parsePublisher(m["publisher"])
	if err != nil {
		return nil, err
	}
	path, err := pub.Path()
	if err != nil {
		return nil, err
	}

	rec := &DatasetRecord{
		Identifier:    str(m, "identifier", None),
		Title:         title,
		License:       str(m, "license", None),
		ProgramCodes:  NewTuple(strs(m, "programCode", []string{None})...),
		BureauCodes:   NewTuple(strs(m, "bureauCode", []string{None})...),
		AccessLevel:   str(m, "accessLevel", None),
		Contact:       parseContact(m),
		Publisher:     pub,
		PublisherPath: path,
		Keywords:      strs(m, "keyword", nil),
		LandingPage:   str(m, "landingPage", ""),
		Raw:           m,
	}

	if dists, ok := m["distribution"].([]any); ok {
		for _, d := range dists {
			dm, ok := d.(map[string]any)
			if !ok {
				continue
			}
			rec.Distributions = append(rec.Distributions, DistributionRecord{
				Title:       str(dm, "title", str(dm, "Title", "")),
				DownloadURL: optStr(dm, "downloadURL"),
				AccessURL:   optStr(dm, "accessURL"),
			})
		}
	}

	return rec, nil
}

// parseContact reads both the POD 1.1 form {fn, hasEmail} and the 1.0 form
// where contactPoint is a bare name and the address lives in mbox.
func parseContact(m map[string]any) Contact {
	switch cp := m["contactPoint"].(type) {
	case map[string]any:
		return Contact{
			FullName: str(cp, "fn", str(cp, "fullName", "")),
			Email:    str(cp, "hasEmail", str(cp, "email", "")),
		}
	case string:
		return Contact{FullName: cp, Email: str(m, "mbox", "")}
	}
	return Contact{}
}

func str(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return scalar(v)
}

func optStr(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s := str(m, key, "")
	return &s
}

// strs reads a list of strings. A bare string counts as a one-element list.
func strs(m map[string]any, key string, def []string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, bool:
				out = append(out, scalar(s))
			}
		}
		return out
	}
	return def
}

func scalar(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
