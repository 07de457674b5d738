// Package attendance turns validated tokens into persisted attendance
// records and answers report queries over them.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hadirku/internal/model"
	"hadirku/internal/store"
	"hadirku/internal/token"
)

var (
	// ErrTokenMalformed indicates an unparseable scan payload.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired indicates a well-formed token past its window.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnknownReference indicates a dangling schedule, subject or student id.
	ErrUnknownReference = errors.New("unknown reference")
)

// Service coordinates token issuance and attendance recording.
type Service struct {
	gw    store.Gateway
	codec *token.Codec
	grace time.Duration

	// now allows tests to drive the clock.
	now func() time.Time
}

// NewService creates a recorder with the given grace period for on-time
// classification.
func NewService(gw store.Gateway, codec *token.Codec, grace time.Duration) *Service {
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	return &Service{gw: gw, codec: codec, grace: grace, now: time.Now}
}

// IssueToken encodes a session token for a (schedule, subject, date) triple,
// checking the references exist first so a bad screen state cannot mint
// tokens for deleted rows.
func (s *Service) IssueToken(ctx context.Context, scheduleID, subjectID, date string) (string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("%w: bad date %q", ErrTokenMalformed, date)
	}
	schedule, err := store.Get[model.Schedule](ctx, s.gw, store.Schedules, scheduleID)
	if err != nil {
		return "", err
	}
	subject, err := store.Get[model.Subject](ctx, s.gw, store.Subjects, subjectID)
	if err != nil {
		return "", err
	}
	if schedule == nil || subject == nil {
		return "", fmt.Errorf("%w: schedule %q subject %q", ErrUnknownReference, scheduleID, subjectID)
	}
	payload, err := s.codec.Encode(scheduleID, subjectID, date)
	if err != nil {
		return "", err
	}
	tokensIssued.Inc()
	return payload, nil
}

// Record converts a scanned token plus a student identity into exactly one
// persisted attendance record. Expired or malformed tokens never write. A
// repeat scan for the same (student, schedule, date) returns the existing
// record instead of creating a duplicate.
func (s *Service) Record(ctx context.Context, payload, studentID string) (model.Attendance, error) {
	desc, err := token.Decode(payload)
	if err != nil {
		scansRejected.WithLabelValues("malformed").Inc()
		return model.Attendance{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	capturedAt := s.now()
	if !desc.ValidAt(capturedAt) {
		scansRejected.WithLabelValues("expired").Inc()
		return model.Attendance{}, ErrTokenExpired
	}

	schedule, err := store.Get[model.Schedule](ctx, s.gw, store.Schedules, desc.ScheduleID)
	if err != nil {
		return model.Attendance{}, err
	}
	subject, err := store.Get[model.Subject](ctx, s.gw, store.Subjects, desc.SubjectID)
	if err != nil {
		return model.Attendance{}, err
	}
	student, err := store.Get[model.Student](ctx, s.gw, store.Students, studentID)
	if err != nil {
		return model.Attendance{}, err
	}
	if schedule == nil || subject == nil || student == nil {
		scansRejected.WithLabelValues("unknown_reference").Inc()
		return model.Attendance{}, fmt.Errorf("%w: schedule %q subject %q student %q",
			ErrUnknownReference, desc.ScheduleID, desc.SubjectID, studentID)
	}

	existing, err := store.Find[model.Attendance](ctx, s.gw, store.Attendances, store.Filter{
		Equals: map[string]string{
			"studentId":  studentID,
			"scheduleId": desc.ScheduleID,
			"date":       desc.Date,
		},
	})
	if err != nil {
		return model.Attendance{}, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	rec := model.Attendance{
		StudentID:  studentID,
		ScheduleID: desc.ScheduleID,
		SubjectID:  desc.SubjectID,
		Date:       desc.Date,
		Status:     classify(*schedule, desc.Date, capturedAt, s.grace),
		CapturedAt: capturedAt.UTC().Truncate(time.Second),
	}
	created, err := store.Add(ctx, s.gw, store.Attendances, rec)
	if err != nil {
		return model.Attendance{}, err
	}
	scansRecorded.WithLabelValues(string(created.Status)).Inc()
	return created, nil
}

// classify marks a scan present when it lands within the grace period of the
// schedule's nominal start, late otherwise. A schedule without a parseable
// start time classifies as present.
func classify(schedule model.Schedule, date string, capturedAt time.Time, grace time.Duration) model.Status {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+schedule.StartTime, capturedAt.Location())
	if err != nil {
		return model.StatusPresent
	}
	if capturedAt.Before(start.Add(grace)) {
		return model.StatusPresent
	}
	return model.StatusLate
}
