package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/grievance-desk/internal/model"
)

// ErrNoSession is returned when an operation needs a session and got none.
var ErrNoSession = errors.New("not logged in")

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	var resp LoginResponse
	err := c.Post(ctx, "/Auth/login", LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", email, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("logging in as %s: server returned no token", email)
	}

	s := resp.Session()
	if s.Email == "" {
		s.Email = email
	}
	return s, nil
}

// ComplaintsPath returns the listing endpoint visible to the session's
// role: every complaint for admins, the department's for managers, and
// the user's own otherwise.
func ComplaintsPath(s *model.Session) string {
	switch s.Role {
	case model.RoleAdmin:
		return "/Complaint/all"
	case model.RoleManager:
		return fmt.Sprintf("/Complaint/department/%d", s.DepartmentID)
	default:
		return "/Complaint/my-complaints"
	}
}

// ListComplaints fetches the complaints visible to the session.
func (c *Client) ListComplaints(ctx context.Context, s *model.Session) ([]model.Complaint, error) {
	if !s.Valid() {
		return nil, ErrNoSession
	}

	path := ComplaintsPath(s)
	var resp []ComplaintResponse
	if err := c.WithToken(s.Token).Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing complaints: %w", err)
	}

	complaints := make([]model.Complaint, 0, len(resp))
	for _, r := range resp {
		complaints = append(complaints, r.Complaint())
	}
	return complaints, nil
}

// GetComplaint fetches a single complaint.
func (c *Client) GetComplaint(ctx context.Context, id int64) (*model.Complaint, error) {
	var resp ComplaintResponse
	if err := c.Get(ctx, fmt.Sprintf("/Complaint/%d", id), &resp); err != nil {
		return nil, fmt.Errorf("getting complaint %d: %w", id, err)
	}
	complaint := resp.Complaint()
	return &complaint, nil
}

// UpdateStatus changes a complaint's status and records the reviewer's
// remarks. Only managers and admins are allowed to do this server-side.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status, remarks string) error {
	if status == "" {
		return errors.New("status is required")
	}

	body := UpdateStatusRequest{
		Status:         status,
		ManagerRemarks: strings.TrimSpace(remarks),
	}
	if err := c.Put(ctx, fmt.Sprintf("/Complaint/%d/status", id), body, nil); err != nil {
		return fmt.Errorf("updating complaint %d to %q: %w", id, status, err)
	}
	return nil
}
