// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Upstream APIs are loose about types: a year arrives as 2021 or "2021",
// a title as a string or a one-element list, and any field may be null.
// These types absorb that at the adapter boundary so the rest of the
// package sees plain Go values.

// flexString decodes a string, number, bool, or null. Arrays yield their
// first string element.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var items []flexString
		if err := json.Unmarshal(b, &items); err != nil {
			*f = ""
			return nil
		}
		*f = ""
		for _, it := range items {
			if it != "" {
				*f = it
				break
			}
		}
	case '{':
		*f = ""
	default:
		*f = flexString(string(b))
	}
	return nil
}

// flexInt decodes a number, a numeric string, or null (as 0).
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(int(x))
		return nil
	}
	*f = 0
	return nil
}

// flexStrings decodes a list of strings, a single string, or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	if b[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(b, &items); err != nil {
			*f = nil
			return nil
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}
		*f = out
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = nil
	} else {
		*f = []string{string(s)}
	}
	return nil
}
