package events

import "time"

const (
	LeaveStatusTopic            = "hr.leave.status.v1"
	LeaveStatusChangedEventType = "leave_status_changed"
)

type LeaveStatusChangedEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	LeaveID        string    `json:"leave_id"`
	EmployeeID     string    `json:"employee_id"`
	AdminID        string    `json:"admin_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}
