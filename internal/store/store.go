package store

import (
	"context"
	"errors"

	"github.com/nhle/grievance-desk/internal/model"
)

// ErrNotFound is returned when a complaint is not in the cache.
var ErrNotFound = errors.New("complaint not found")

// ComplaintFilter controls filtering, sorting, and limits for complaint
// queries. The zero value returns every cached complaint, oldest first.
type ComplaintFilter struct {
	Query    string // matches title, description or the decimal id
	Status   string // compared after NormalizeStatus; "" means all
	SortBy   string // "created_at" (default), "id", "title", "status"
	SortDesc bool
	Limit    int
}

// Store defines the persistence interface for the complaint cache.
type Store interface {
	UpsertComplaints(ctx context.Context, complaints []model.Complaint) error
	ReplaceComplaints(ctx context.Context, complaints []model.Complaint) error
	GetComplaints(ctx context.Context, filter ComplaintFilter) ([]model.Complaint, error)
	GetComplaintByID(ctx context.Context, id int64) (*model.Complaint, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Purge(ctx context.Context) error
	Close() error
}
