package attendance

import (
	"context"
	"sort"

	"hadirku/internal/model"
	"hadirku/internal/store"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// ReportRequest shapes a read-side query: inclusive date range, optional
// equality filters, cursor pagination.
type ReportRequest struct {
	DateFrom  string
	DateTo    string
	SubjectID string
	StudentID string
	Cursor    string
	Limit     int
}

// Report returns attendance records in the inclusive date range, sorted by
// (date, id) so pagination is stable regardless of backend ordering. The
// returned cursor is empty on the last page.
func (s *Service) Report(ctx context.Context, req ReportRequest) ([]model.Attendance, string, error) {
	f := store.Filter{DateFrom: req.DateFrom, DateTo: req.DateTo}
	if req.SubjectID != "" || req.StudentID != "" {
		f.Equals = map[string]string{}
		if req.SubjectID != "" {
			f.Equals["subjectId"] = req.SubjectID
		}
		if req.StudentID != "" {
			f.Equals["studentId"] = req.StudentID
		}
	}
	records, err := store.Find[model.Attendance](ctx, s.gw, store.Attendances, f)
	if err != nil {
		return nil, "", err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].ID < records[j].ID
	})

	start := 0
	if req.Cursor != "" {
		for i, rec := range records {
			if rec.ID == req.Cursor {
				start = i + 1
				break
			}
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	page := records[start:end]
	next := ""
	if end < len(records) && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next, nil
}
