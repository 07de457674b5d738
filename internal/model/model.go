package model

import "time"

// Status classifies a single attendance record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusSick    Status = "sick"
	StatusExcused Status = "excused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusSick, StatusExcused:
		return true
	}
	return false
}

// Role identifies which reference table backs a user account.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Student is a pupil who scans attendance tokens.
type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	Class     string `json:"class"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
}

// Teacher owns subjects and issues attendance tokens.
type Teacher struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacherId"`
	Email     string   `json:"email"`
	Subjects  []string `json:"subjects"`
	Password  string   `json:"password,omitempty"`
}

// Admin manages reference data.
type Admin struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// User is the login identity; RoleID references the row in the
// role-specific collection that holds the credential.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	RoleID   string `json:"roleId"`
	Password string `json:"password,omitempty"`
}

// Subject is a course taught by a teacher.
type Subject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	TeacherID string `json:"teacherId"`
}

// Schedule is a recurring class slot. StartTime and EndTime are
// wall-clock strings in "HH:MM" form.
type Schedule struct {
	ID         string `json:"id"`
	SubjectID  string `json:"subjectId"`
	TeacherID  string `json:"teacherId"`
	Class      string `json:"class"`
	DayOfWeek  string `json:"dayOfWeek"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	RoomNumber string `json:"roomNumber"`
}

// Attendance is one recorded scan. Date is the calendar date of the
// class in "2006-01-02" form; CapturedAt is the scan instant.
type Attendance struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	ScheduleID string    `json:"scheduleId"`
	SubjectID  string    `json:"subjectId"`
	Date       string    `json:"date"`
	Status     Status    `json:"status"`
	CapturedAt time.Time `json:"capturedAt"`
}
