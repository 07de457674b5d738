// Package token implements the attendance token lifecycle: a short-lived
// descriptor for one class session, carried as a JSON payload inside a QR
// code or typed in manually.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrMalformed indicates the payload is not parseable structured data.
	ErrMalformed = errors.New("malformed token")
	// ErrMissingField indicates a parseable payload with a required field absent.
	ErrMissingField = errors.New("missing token field")
)

// Descriptor identifies a class session and its validity window.
// Immutable once issued; never persisted.
type Descriptor struct {
	ScheduleID string    `json:"scheduleId"`
	SubjectID  string    `json:"subjectId"`
	Date       string    `json:"date"`
	IssuedAt   time.Time `json:"issuedAt"`
	TTL        string    `json:"ttl"`
}

// Codec issues and parses attendance tokens. The zero value issues tokens
// with a 15 minute window.
type Codec struct {
	TTL time.Duration
	// Now allows tests to pin the issue instant.
	Now func() time.Time
}

// NewCodec returns a codec issuing tokens valid for ttl.
func NewCodec(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Codec{TTL: ttl}
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Codec) ttl() time.Duration {
	if c.TTL <= 0 {
		return 15 * time.Minute
	}
	return c.TTL
}

// Encode serializes a session triple into a token payload, stamping the
// current instant. The payload round-trips losslessly through Decode.
func (c *Codec) Encode(scheduleID, subjectID, date string) (string, error) {
	if scheduleID == "" || subjectID == "" || date == "" {
		return "", fmt.Errorf("%w: schedule, subject and date required", ErrMissingField)
	}
	d := Descriptor{
		ScheduleID: scheduleID,
		SubjectID:  subjectID,
		Date:       date,
		IssuedAt:   c.now().UTC().Truncate(time.Second),
		TTL:        FormatTTL(c.ttl()),
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a token payload back into a descriptor.
func Decode(payload string) (Descriptor, error) {
	var raw struct {
		ScheduleID *string    `json:"scheduleId"`
		SubjectID  *string    `json:"subjectId"`
		Date       *string    `json:"date"`
		IssuedAt   *time.Time `json:"issuedAt"`
		TTL        *string    `json:"ttl"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for name, absent := range map[string]bool{
		"scheduleId": raw.ScheduleID == nil || *raw.ScheduleID == "",
		"subjectId":  raw.SubjectID == nil || *raw.SubjectID == "",
		"date":       raw.Date == nil || *raw.Date == "",
		"issuedAt":   raw.IssuedAt == nil,
		"ttl":        raw.TTL == nil || *raw.TTL == "",
	} {
		if absent {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return Descriptor{
		ScheduleID: *raw.ScheduleID,
		SubjectID:  *raw.SubjectID,
		Date:       *raw.Date,
		IssuedAt:   *raw.IssuedAt,
		TTL:        *raw.TTL,
	}, nil
}

// ValidAt reports whether the token is still inside its validity window at
// now. The boundary is strict: exactly at IssuedAt+TTL the token is expired.
func (d Descriptor) ValidAt(now time.Time) bool {
	return now.Sub(d.IssuedAt) < ParseTTL(d.TTL)
}

// ParseTTL converts a duration string like "15m" into a duration. Supported
// units are s, m, h and d. Anything unrecognized yields a zero-length window,
// so a bad TTL is always treated as already expired, never as infinite.
func ParseTTL(ttl string) time.Duration {
	if len(ttl) < 2 {
		return 0
	}
	value, err := strconv.Atoi(ttl[:len(ttl)-1])
	if err != nil || value < 0 {
		return 0
	}
	switch ttl[len(ttl)-1] {
	case 's':
		return time.Duration(value) * time.Second
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	}
	return 0
}

// FormatTTL renders a duration in the suffix form ParseTTL accepts, choosing
// the largest unit that divides it evenly.
func FormatTTL(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	case d >= time.Hour && d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	case d >= time.Minute && d%time.Minute == 0:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	default:
		return strconv.Itoa(int(d/time.Second)) + "s"
	}
}
