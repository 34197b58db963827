package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout is the format used for CreatedAt and UpdatedAt
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Report represents a single incident report
type Report struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Location  string `json:"location"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"` // empty until first edit

	// Datetime is a combined date and time carried by older records. It is
	// shown in preference to Date and Time until the report is edited.
	Datetime string `json:"datetime,omitempty"`
}

// Stamp formats t the way CreatedAt and UpdatedAt are stored
func Stamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Created parses CreatedAt. ok is false for missing or foreign timestamps.
func (r Report) Created() (t time.Time, ok bool) {
	return parseStamp(r.CreatedAt)
}

// Updated parses UpdatedAt
func (r Report) Updated() (t time.Time, ok bool) {
	return parseStamp(r.UpdatedAt)
}

func parseStamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UnmarshalJSON decodes a report leniently. Imported files and old slots may
// hold records of any shape: missing fields stay empty, numbers and booleans
// keep their literal text, and anything that is not an object decodes to an
// empty report instead of failing.
func (r *Report) UnmarshalJSON(data []byte) error {
	*r = Report{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}

	r.ID = looseString(fields["id"])
	r.Title = looseString(fields["title"])
	r.Location = looseString(fields["location"])
	r.Date = looseString(fields["date"])
	r.Time = looseString(fields["time"])
	r.Notes = looseString(fields["notes"])
	r.CreatedAt = looseString(fields["createdAt"])
	r.UpdatedAt = looseString(fields["updatedAt"])
	r.Datetime = looseString(fields["datetime"])
	return nil
}

// looseString returns the string value of raw, or its literal text for
// numbers and booleans. Objects, arrays and null yield "".
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}
