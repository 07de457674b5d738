package token

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	c := NewCodec(15 * time.Minute)
	c.Now = func() time.Time { return issued }

	payload, err := c.Encode("S1", "M1", "2025-05-03")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Descriptor{
		ScheduleID: "S1",
		SubjectID:  "M1",
		Date:       "2025-05-03",
		IssuedAt:   issued,
		TTL:        "15m",
	}
	if !got.IssuedAt.Equal(want.IssuedAt) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, want.IssuedAt)
	}
	got.IssuedAt = want.IssuedAt
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestEncodeRequiresFields(t *testing.T) {
	c := NewCodec(0)
	if _, err := c.Encode("", "M1", "2025-05-03"); !errors.Is(err, ErrMissingField) {
		t.Errorf("empty schedule: err = %v, want ErrMissingField", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, payload := range []string{"", "not json", "[1,2,3", `"just a string`} {
		if _, err := Decode(payload); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", payload, err)
		}
	}
}

func TestDecodeMissingFields(t *testing.T) {
	cases := map[string]string{
		"scheduleId": `{"subjectId":"M1","date":"2025-05-03","issuedAt":"2025-05-03T08:00:00Z","ttl":"15m"}`,
		"subjectId":  `{"scheduleId":"S1","date":"2025-05-03","issuedAt":"2025-05-03T08:00:00Z","ttl":"15m"}`,
		"date":       `{"scheduleId":"S1","subjectId":"M1","issuedAt":"2025-05-03T08:00:00Z","ttl":"15m"}`,
		"issuedAt":   `{"scheduleId":"S1","subjectId":"M1","date":"2025-05-03","ttl":"15m"}`,
		"ttl":        `{"scheduleId":"S1","subjectId":"M1","date":"2025-05-03","issuedAt":"2025-05-03T08:00:00Z"}`,
	}
	for field, payload := range cases {
		if _, err := Decode(payload); !errors.Is(err, ErrMissingField) {
			t.Errorf("missing %s: err = %v, want ErrMissingField", field, err)
		}
	}
}

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"15x", 0},
		{"m", 0},
		{"", 0},
		{"-5m", 0},
		{"abcm", 0},
	}
	for _, tc := range cases {
		if got := ParseTTL(tc.in); got != tc.want {
			t.Errorf("ParseTTL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatTTL(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{15 * time.Minute, "15m"},
		{2 * time.Hour, "2h"},
		{24 * time.Hour, "1d"},
		{90 * time.Second, "90s"},
	}
	for _, tc := range cases {
		if got := FormatTTL(tc.in); got != tc.want {
			t.Errorf("FormatTTL(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidAtStrictBoundary(t *testing.T) {
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	d := Descriptor{IssuedAt: issued, TTL: "15m"}

	if !d.ValidAt(issued.Add(15*time.Minute - time.Millisecond)) {
		t.Error("one millisecond before expiry should be valid")
	}
	if d.ValidAt(issued.Add(15 * time.Minute)) {
		t.Error("exactly at expiry should be invalid")
	}
	if d.ValidAt(issued.Add(16 * time.Minute)) {
		t.Error("past expiry should be invalid")
	}
}

func TestUnknownUnitExpiresImmediately(t *testing.T) {
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	d := Descriptor{IssuedAt: issued, TTL: "15w"}
	if d.ValidAt(issued) {
		t.Error("unknown unit must decode to a zero-length window")
	}
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG(`{"scheduleId":"S1"}`, 128)
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("QRPNG returned empty image")
	}
}
