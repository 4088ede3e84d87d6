package leave

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *Leave) error
	FindByEmployee(ctx context.Context, employeeID string, q ListQuery) ([]Leave, int64, error)
	FindAll(ctx context.Context, q ListQuery) ([]Leave, int64, error)
	FindByID(ctx context.Context, id string) (*Leave, error)
	UpdateStatus(ctx context.Context, id, status string) error
	AppendAudit(ctx context.Context, entry *AuditEntry) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn routes statements through the bound transaction when there is one.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.conn(ctx).Omit("Employee", "Audit").Create(l).Error
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID string, q ListQuery) ([]Leave, int64, error) {
	return r.list(ctx, q, func(db *gorm.DB) *gorm.DB {
		return db.Where("employee_id = ?", employeeID)
	})
}

func (r *repository) FindAll(ctx context.Context, q ListQuery) ([]Leave, int64, error) {
	return r.list(ctx, q, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *repository) list(ctx context.Context, q ListQuery, scope func(*gorm.DB) *gorm.DB) ([]Leave, int64, error) {
	var total int64
	if q.Paged() {
		if err := r.conn(ctx).Model(&Leave{}).Scopes(scope).Count(&total).Error; err != nil {
			return nil, 0, err
		}
	}

	db := r.conn(ctx).Scopes(scope).
		Preload("Employee").
		Preload("Audit", orderAudit).
		Order("created_at DESC")
	if q.Paged() {
		db = db.Offset(q.Offset()).Limit(q.PageSize)
	}

	var leaves []Leave
	if err := db.Find(&leaves).Error; err != nil {
		return nil, 0, err
	}
	if !q.Paged() {
		total = int64(len(leaves))
	}
	return leaves, total, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Leave, error) {
	var l Leave
	err := r.conn(ctx).
		Preload("Employee").
		Preload("Audit", orderAudit).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.conn(ctx).Model(&Leave{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	return r.conn(ctx).Create(entry).Error
}

func orderAudit(db *gorm.DB) *gorm.DB {
	return db.Order("at ASC")
}
