package model

import (
	"strconv"
	"strings"
	"time"
)

// Complaint statuses as reported by the grievance API.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusRejected   = "Rejected"
)

// Statuses lists the known complaint statuses in workflow order.
var Statuses = []string{
	StatusPending,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
}

// Complaint is a grievance filed by an employee.
type Complaint struct {
	// ID is the decimal complaint number used in notification text ("#101").
	ID int64 `json:"complaintId" db:"id"`

	// Title is the one-line summary.
	Title string `json:"title" db:"title"`

	// Description is the full complaint body.
	Description string `json:"description" db:"description"`

	// Status is one of the Status* constants. The API is not strict about
	// spacing or case, see NormalizeStatus.
	Status string `json:"status" db:"status"`

	EmployeeName   string `json:"employeeName" db:"employee_name"`
	DepartmentName string `json:"departmentName" db:"department_name"`

	// ManagerRemarks holds the reviewer's note on the latest status change.
	ManagerRemarks string `json:"managerRemarks" db:"manager_remarks"`

	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`

	// FetchedAt is when this complaint was last retrieved from the API.
	FetchedAt time.Time `json:"-" db:"fetched_at"`
}

// EntityID returns the correlation key used by notifications.
func (c Complaint) EntityID() string {
	return strconv.FormatInt(c.ID, 10)
}

// IsClosed reports whether the complaint reached a terminal status.
func (c Complaint) IsClosed() bool {
	s := NormalizeStatus(c.Status)
	return s == NormalizeStatus(StatusResolved) || s == NormalizeStatus(StatusRejected)
}

// NormalizeStatus strips whitespace and lowercases a status so that
// "In Progress", "InProgress" and "inprogress" compare equal.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.Join(strings.Fields(status), ""))
}
