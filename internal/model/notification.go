package model

import "time"

// Notification is a real-time event surfaced to the user, usually about
// activity on a complaint.
type Notification struct {
	// ID is a time-ordered unique identifier assigned on arrival.
	ID string `json:"id"`

	// Message is the event text exactly as delivered by the push channel.
	// It may reference a complaint as "#<id>".
	Message string `json:"message"`

	// EntityID is the explicit complaint reference when the server sends
	// one. Empty when absent.
	EntityID string `json:"entity_id,omitempty"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// ReceivedAt is when the event arrived.
	ReceivedAt time.Time `json:"received_at"`
}

// TimeOfDay formats the arrival time for display (e.g. "14:05").
func (n Notification) TimeOfDay() string {
	return n.ReceivedAt.Local().Format("15:04")
}

// Toast is a short-lived popup shown alongside a new notification or
// after a user action. It expires independently of any notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeOfDay formats the creation time for display.
func (t Toast) TimeOfDay() string {
	return t.CreatedAt.Local().Format("15:04")
}
