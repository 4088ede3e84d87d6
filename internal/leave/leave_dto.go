package leave

import "time"

// CreateLeaveRequest and UpdateStatusRequest are validated by the service so every
// violation is reported together, including date formats binding cannot check.
type CreateLeaveRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ListQuery pages a listing. A zero PageSize means unbounded.
type ListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (q ListQuery) Paged() bool {
	return q.PageSize > 0
}

func (q ListQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

type EmployeeResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuditEntryResponse struct {
	Action  string    `json:"action"`
	AdminID string    `json:"adminId"`
	At      time.Time `json:"at"`
}

type LeaveResponse struct {
	ID         string               `json:"id"`
	EmployeeID string               `json:"employeeId"`
	Employee   *EmployeeResponse    `json:"employee,omitempty"`
	StartDate  time.Time            `json:"startDate"`
	EndDate    time.Time            `json:"endDate"`
	TotalDays  int                  `json:"totalDays"`
	Reason     string               `json:"reason"`
	Status     string               `json:"status"`
	Audit      []AuditEntryResponse `json:"audit"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}
