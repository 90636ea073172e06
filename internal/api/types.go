package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/grievance-desk/internal/model"
)

// ErrorResponse covers the error bodies the API returns: a bare
// {"message": ...} from controllers and RFC 7807 problem details from the
// framework's validation layer.
type ErrorResponse struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Status  int    `json:"status"`
}

// LoginRequest is the body of POST /Auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	DeptID   *int64 `json:"deptId"`
	// Some deployments spell the department key out.
	DepartmentID *int64 `json:"departmentId"`
}

// Session converts the response into a session.
func (r LoginResponse) Session() *model.Session {
	s := &model.Session{
		Token: r.Token,
		Name:  r.FullName,
		Email: r.Email,
		Role:  model.Role(r.Role),
	}
	switch {
	case r.DeptID != nil:
		s.DepartmentID = *r.DeptID
	case r.DepartmentID != nil:
		s.DepartmentID = *r.DepartmentID
	}
	return s
}

// ComplaintResponse is a complaint as serialized by the API.
type ComplaintResponse struct {
	ComplaintID    int64  `json:"complaintId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	EmployeeName   string `json:"employeeName"`
	DepartmentName string `json:"departmentName"`
	ManagerRemarks string `json:"managerRemarks"`
	CreatedAt      Time   `json:"createdAt"`
	ResolvedAt     *Time  `json:"resolvedAt"`
}

// Complaint converts the response into the domain type.
func (r ComplaintResponse) Complaint() model.Complaint {
	c := model.Complaint{
		ID:             r.ComplaintID,
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		EmployeeName:   r.EmployeeName,
		DepartmentName: r.DepartmentName,
		ManagerRemarks: r.ManagerRemarks,
		CreatedAt:      r.CreatedAt.Time,
	}
	if r.ResolvedAt != nil && !r.ResolvedAt.IsZero() {
		t := r.ResolvedAt.Time
		c.ResolvedAt = &t
	}
	return c
}

// UpdateStatusRequest is the body of PUT /Complaint/{id}/status.
type UpdateStatusRequest struct {
	Status         string `json:"status"`
	ManagerRemarks string `json:"managerRemarks,omitempty"`
}

// timeLayouts are tried in order. The server omits the zone offset for
// values stored as local time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

// Time decodes the API's timestamps, which may or may not carry a zone.
// Values without a zone are taken as UTC.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
