package testutil

import (
	"testing"
	"time"

	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Complaint builds a complaint with sensible defaults. The creation time
// is derived from id so that ordering by id and by date agree.
func Complaint(id int64, title, status string) model.Complaint {
	return model.Complaint{
		ID:             id,
		Title:          title,
		Description:    title + " details",
		Status:         status,
		EmployeeName:   "Employee",
		DepartmentName: "Operations",
		CreatedAt:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
}
