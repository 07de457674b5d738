package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"hadirku/internal/model"
	"hadirku/internal/store"
	"hadirku/internal/token"
)

// fixture creates a file-backed gateway with one schedule, subject and
// student, returning their assigned ids.
type fixture struct {
	gw       store.Gateway
	schedule model.Schedule
	subject  model.Subject
	student  model.Student
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fs, err := store.OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	ctx := context.Background()
	subject, err := store.Add(ctx, fs, store.Subjects, model.Subject{Name: "Matematika", Code: "M1"})
	if err != nil {
		t.Fatalf("add subject: %v", err)
	}
	schedule, err := store.Add(ctx, fs, store.Schedules, model.Schedule{
		SubjectID: subject.ID,
		Class:     "XII IPA 1",
		DayOfWeek: "Sabtu",
		StartTime: "08:00",
		EndTime:   "09:30",
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}
	student, err := store.Add(ctx, fs, store.Students, model.Student{
		Name: "Ahmad Farizi", StudentID: "STU1", Class: "XII IPA 1",
	})
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	return fixture{gw: fs, schedule: schedule, subject: subject, student: student}
}

func newService(fx fixture, codec *token.Codec, now time.Time) *Service {
	s := NewService(fx.gw, codec, 10*time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestRecordScenario(t *testing.T) {
	fx := newFixture(t)
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	codec := token.NewCodec(15 * time.Minute)
	codec.Now = func() time.Time { return issued }

	svc := newService(fx, codec, issued)
	payload, err := svc.IssueToken(context.Background(), fx.schedule.ID, fx.subject.ID, "2025-05-03")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	// immediate scan lands inside the grace period
	rec, err := svc.Record(context.Background(), payload, fx.student.ID)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Status != model.StatusPresent {
		t.Errorf("status = %s, want present", rec.Status)
	}
	if rec.StudentID != fx.student.ID || rec.Date != "2025-05-03" {
		t.Errorf("record = %+v", rec)
	}

	// sixteen minutes later the token is past its window
	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	other, err := store.Add(context.Background(), fx.gw, store.Students, model.Student{Name: "Diah", StudentID: "STU2"})
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	if _, err := svc.Record(context.Background(), payload, other.ID); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired scan err = %v, want ErrTokenExpired", err)
	}

	// and the rejection wrote nothing
	records, err := store.List[model.Attendance](context.Background(), fx.gw, store.Attendances)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("attendance count = %d, want 1", len(records))
	}
}

func TestRecordLateBeyondGrace(t *testing.T) {
	fx := newFixture(t)
	// schedule starts 08:00, grace 10m, scan at 08:20
	scan := time.Date(2025, 5, 3, 8, 20, 0, 0, time.UTC)
	codec := token.NewCodec(time.Hour)
	codec.Now = func() time.Time { return scan }

	svc := newService(fx, codec, scan)
	payload, err := svc.IssueToken(context.Background(), fx.schedule.ID, fx.subject.ID, "2025-05-03")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec, err := svc.Record(context.Background(), payload, fx.student.ID)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Status != model.StatusLate {
		t.Errorf("status = %s, want late", rec.Status)
	}
}

func TestRecordIdempotent(t *testing.T) {
	fx := newFixture(t)
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	codec := token.NewCodec(15 * time.Minute)
	codec.Now = func() time.Time { return issued }

	svc := newService(fx, codec, issued)
	payload, _ := svc.IssueToken(context.Background(), fx.schedule.ID, fx.subject.ID, "2025-05-03")

	first, err := svc.Record(context.Background(), payload, fx.student.ID)
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	second, err := svc.Record(context.Background(), payload, fx.student.ID)
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate scan created a second record: %q vs %q", first.ID, second.ID)
	}
	records, _ := store.List[model.Attendance](context.Background(), fx.gw, store.Attendances)
	if len(records) != 1 {
		t.Fatalf("attendance count = %d, want 1", len(records))
	}
}

func TestRecordMalformedToken(t *testing.T) {
	fx := newFixture(t)
	svc := newService(fx, token.NewCodec(0), time.Now())
	if _, err := svc.Record(context.Background(), "{broken", fx.student.ID); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("err = %v, want ErrTokenMalformed", err)
	}
}

func TestRecordUnknownReferences(t *testing.T) {
	fx := newFixture(t)
	issued := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	codec := token.NewCodec(15 * time.Minute)
	codec.Now = func() time.Time { return issued }
	svc := newService(fx, codec, issued)

	payload, _ := svc.IssueToken(context.Background(), fx.schedule.ID, fx.subject.ID, "2025-05-03")
	if _, err := svc.Record(context.Background(), payload, "ghost"); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unknown student err = %v, want ErrUnknownReference", err)
	}

	if _, err := svc.IssueToken(context.Background(), "ghost", fx.subject.ID, "2025-05-03"); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unknown schedule err = %v, want ErrUnknownReference", err)
	}
}

func TestIssueTokenRejectsBadDate(t *testing.T) {
	fx := newFixture(t)
	svc := newService(fx, token.NewCodec(0), time.Now())
	if _, err := svc.IssueToken(context.Background(), fx.schedule.ID, fx.subject.ID, "03-05-2025"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("err = %v, want ErrTokenMalformed", err)
	}
}
