package user_test

import (
	"context"
	"regexp"
	"testing"

	"go-leave/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepoTest(t *testing.T) (user.Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	return user.NewRepository(db), mock
}

func TestRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()
	selectSQL := regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)

	t.Run("success normalizes address", func(t *testing.T) {
		repo, mock := setupRepoTest(t)
		id := uuid.New()
		mock.ExpectQuery(selectSQL).
			WithArgs("jane@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(id.String(), "Jane", "jane@example.com", "employee"))

		u, err := repo.FindByEmail(ctx, "  Jane@Example.COM ")

		assert.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "Jane", u.Identity().Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative unknown email", func(t *testing.T) {
		repo, mock := setupRepoTest(t)
		mock.ExpectQuery(selectSQL).
			WithArgs("ghost@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		u, err := repo.FindByEmail(ctx, "ghost@example.com")

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Nil(t, u)
	})
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", user.NormalizeEmail(" JANE@example.com\n"))
}
