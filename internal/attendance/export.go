package attendance

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"

	"hadirku/internal/model"
	"hadirku/internal/store"
)

const exportSheet = "Attendance Report"

var exportHeaders = []string{
	"Tanggal", "Waktu", "Nama Siswa", "ID Siswa", "Kelas", "Mata Pelajaran", "Status",
}

// statusLabel localizes a status for the exported sheet.
func statusLabel(s model.Status) string {
	switch s {
	case model.StatusPresent:
		return "Hadir"
	case model.StatusLate:
		return "Terlambat"
	case model.StatusSick:
		return "Sakit"
	case model.StatusExcused:
		return "Izin"
	default:
		return "Tidak Hadir"
	}
}

// ExportXLSX renders attendance records as a spreadsheet, one row per
// record with human-readable headers. Reference lookups that fail degrade
// to "Unknown" cells so the export still completes.
func (s *Service) ExportXLSX(ctx context.Context, records []model.Attendance) ([]byte, error) {
	students := s.studentIndex(ctx)
	subjects := s.subjectIndex(ctx)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}
	for row, rec := range records {
		student := students[rec.StudentID]
		subject := subjects[rec.SubjectID]
		values := []any{
			rec.Date,
			rec.CapturedAt.Local().Format("15:04:05"),
			pickStudent(student).Name,
			pickStudent(student).StudentID,
			pickStudent(student).Class,
			pickSubject(subject).Name,
			statusLabel(rec.Status),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFileName builds a timestamped download name.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("laporan-kehadiran-%s.xlsx", now.Format("20060102-150405"))
}

func (s *Service) studentIndex(ctx context.Context) map[string]model.Student {
	items, err := store.List[model.Student](ctx, s.gw, store.Students)
	if err != nil {
		log.Printf("warning: export student lookup degraded: %v", err)
	}
	out := make(map[string]model.Student, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

func (s *Service) subjectIndex(ctx context.Context) map[string]model.Subject {
	items, err := store.List[model.Subject](ctx, s.gw, store.Subjects)
	if err != nil {
		log.Printf("warning: export subject lookup degraded: %v", err)
	}
	out := make(map[string]model.Subject, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

func pickStudent(s model.Student) model.Student {
	if s.ID == "" {
		return model.Student{Name: "Unknown", StudentID: "Unknown", Class: "Unknown"}
	}
	return s
}

func pickSubject(s model.Subject) model.Subject {
	if s.ID == "" {
		return model.Subject{Name: "Unknown"}
	}
	return s
}
