package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

type Leave struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_employee_created"`

	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	TotalDays int       `gorm:"type:int;not null"`
	Reason    string    `gorm:"type:varchar(200);not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'Pending'"`

	CreatedAt time.Time `gorm:"index:idx_leaves_employee_created,sort:desc;index:idx_leaves_created,sort:desc"`
	UpdatedAt time.Time

	Employee *Employee    `gorm:"foreignKey:EmployeeID;references:ID"`
	Audit    []AuditEntry `gorm:"foreignKey:LeaveID"`
}

// Employee is the read-only projection of users needed to display a leave request.
type Employee struct {
	ID    uuid.UUID
	Name  string
	Email string
}

func (Employee) TableName() string {
	return "users"
}

// AuditEntry is append-only. Rows are never updated or deleted.
type AuditEntry struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	LeaveID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_audit_leave_at"`
	Action  string    `gorm:"type:text;not null"`
	AdminID uuid.UUID `gorm:"type:uuid;not null"`
	At      time.Time `gorm:"not null;index:idx_leave_audit_leave_at"`
}

func (AuditEntry) TableName() string {
	return "leave_audit_entries"
}
