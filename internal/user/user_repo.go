package user

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Repository stores accounts. Lookups return gorm.ErrRecordNotFound for unknown or
// soft-deleted users.
//
//go:generate mockgen -source=user_repo.go -destination=mock/user_repo_mock.go -package=mock
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// NormalizeEmail is the stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *repository) Create(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *repository) first(ctx context.Context, cond string, arg any) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
