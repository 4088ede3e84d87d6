package leave_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go-leave/internal/audit"
	"go-leave/internal/domain"
	"go-leave/internal/events"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	leaveMock "go-leave/internal/leave/mock"
	"go-leave/internal/messaging/kafka"
	kafkaMock "go-leave/internal/messaging/kafka/mock"
	"go-leave/internal/shared/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (n *recordingNotifier) Log(_ context.Context, entry audit.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, entry)
}

type serviceDeps struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	service  leave.Service
	repo     *leaveMock.MockRepository
	outbox   *kafkaMock.MockOutboxRepository
	notifier *recordingNotifier
}

func setupServiceTest(t *testing.T) *serviceDeps {
	ctrl := gomock.NewController(t)

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := leaveMock.NewMockRepository(ctrl)
	outbox := kafkaMock.NewMockOutboxRepository(ctrl)
	notifier := &recordingNotifier{}

	svc := leave.NewServiceWithOutbox(db, repo, outbox, notifier, zap.NewNop())

	return &serviceDeps{
		db:       db,
		sqlMock:  sqlMock,
		service:  svc,
		repo:     repo,
		outbox:   outbox,
		notifier: notifier,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func newEmployee() domain.Identity {
	return domain.Identity{ID: uuid.NewString(), Name: "Jane Doe", Email: "jane@example.com", Role: domain.RoleEmployee}
}

func newAdmin() domain.Identity {
	return domain.Identity{ID: uuid.NewString(), Name: "Alice Admin", Email: "alice@example.com", Role: domain.RoleAdmin}
}

func fieldErrors(t *testing.T, err error) []apperror.FieldError {
	t.Helper()
	var appErr *apperror.AppError
	if !assert.True(t, errors.As(err, &appErr)) {
		return nil
	}
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	fields, ok := appErr.Details.([]apperror.FieldError)
	assert.True(t, ok)
	return fields
}

func TestCountDays(t *testing.T) {
	date := func(s string) time.Time {
		d, _ := time.Parse(time.RFC3339, s)
		return d
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"same day", date("2024-03-01T00:00:00Z"), date("2024-03-01T00:00:00Z"), 1},
		{"one week inclusive", date("2024-01-01T00:00:00Z"), date("2024-01-07T00:00:00Z"), 7},
		{"three calendar days", date("2024-03-01T00:00:00Z"), date("2024-03-03T00:00:00Z"), 3},
		{"partial day rounds up", date("2024-03-01T00:00:00Z"), date("2024-03-02T12:00:00Z"), 3},
		{"one hour apart", date("2024-03-01T09:00:00Z"), date("2024-03-01T10:00:00Z"), 2},
		{"reversed uses absolute difference", date("2024-03-03T00:00:00Z"), date("2024-03-01T00:00:00Z"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leave.CountDays(tt.start, tt.end))
		})
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists pending request with day count", func(t *testing.T) {
		deps := setupServiceTest(t)
		caller := newEmployee()

		var stored *leave.Leave
		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, l *leave.Leave) error {
			stored = l
			return nil
		})

		res, err := deps.service.Create(ctx, caller, leave.CreateLeaveRequest{
			StartDate: "2024-03-01",
			EndDate:   "2024-03-03",
			Reason:    "  Family trip  ",
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, res.TotalDays)
		assert.Equal(t, leave.StatusPending, res.Status)
		assert.Equal(t, "Family trip", res.Reason)
		assert.Equal(t, caller.ID, res.EmployeeID)
		assert.Empty(t, res.Audit)
		assert.False(t, res.CreatedAt.IsZero())
		assert.Equal(t, caller.ID, stored.EmployeeID.String())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success accepts timestamps and rounds partial days up", func(t *testing.T) {
		deps := setupServiceTest(t)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

		res, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "2024-03-01T00:00:00Z",
			EndDate:   "2024-03-02T12:00:00Z",
			Reason:    "Appointment",
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, res.TotalDays)
	})

	t.Run("negative end before start is an invalid range without a write", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "2024-03-05",
			EndDate:   "2024-03-01",
			Reason:    "Trip",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidRange)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative blank reason is a validation error without a write", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "2024-03-01",
			EndDate:   "2024-03-02",
			Reason:    "   ",
		})

		fields := fieldErrors(t, err)
		if assert.Len(t, fields, 1) {
			assert.Equal(t, "reason", fields[0].Field)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative reason over limit", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "2024-03-01",
			EndDate:   "2024-03-02",
			Reason:    strings.Repeat("a", leave.MaxReasonLength+1),
		})

		fields := fieldErrors(t, err)
		if assert.Len(t, fields, 1) {
			assert.Contains(t, fields[0].Message, "200")
		}
	})

	t.Run("negative every violation is reported together", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "",
			EndDate:   "03/05/2024",
			Reason:    "",
		})

		fields := fieldErrors(t, err)
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Field)
		}
		assert.ElementsMatch(t, []string{"startDate", "endDate", "reason"}, names)
	})

	t.Run("negative admin cannot create", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.Create(ctx, newAdmin(), leave.CreateLeaveRequest{
			StartDate: "2024-03-01",
			EndDate:   "2024-03-02",
			Reason:    "Trip",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("negative persist failure rolls back", func(t *testing.T) {
		deps := setupServiceTest(t)
		dbErr := errors.New("insert failed")

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().Create(ctx, gomock.Any()).Return(dbErr)

		_, err := deps.service.Create(ctx, newEmployee(), leave.CreateLeaveRequest{
			StartDate: "2024-03-01",
			EndDate:   "2024-03-02",
			Reason:    "Trip",
		})

		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestService_ListMine(t *testing.T) {
	ctx := context.Background()

	t.Run("success queries only the caller's records", func(t *testing.T) {
		deps := setupServiceTest(t)
		caller := newEmployee()
		callerUUID := uuid.MustParse(caller.ID)

		deps.repo.EXPECT().FindByEmployee(ctx, caller.ID, leave.ListQuery{}).Return([]leave.Leave{
			{ID: uuid.New(), EmployeeID: callerUUID, Status: leave.StatusPending},
			{ID: uuid.New(), EmployeeID: callerUUID, Status: leave.StatusApproved},
		}, int64(2), nil)

		res, total, err := deps.service.ListMine(ctx, caller, leave.ListQuery{})

		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, r := range res {
			assert.Equal(t, caller.ID, r.EmployeeID)
		}
	})

	t.Run("negative admin cannot list own", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, _, err := deps.service.ListMine(ctx, newAdmin(), leave.ListQuery{})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})
}

func TestService_ListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("success resolves employee", func(t *testing.T) {
		deps := setupServiceTest(t)
		empID := uuid.New()

		deps.repo.EXPECT().FindAll(ctx, leave.ListQuery{Page: 1, PageSize: 10}).Return([]leave.Leave{
			{ID: uuid.New(), EmployeeID: empID, Employee: &leave.Employee{ID: empID, Name: "Jane Doe", Email: "jane@example.com"}},
		}, int64(11), nil)

		res, total, err := deps.service.ListAll(ctx, newAdmin(), leave.ListQuery{Page: 1, PageSize: 10})

		assert.NoError(t, err)
		assert.Equal(t, int64(11), total)
		if assert.Len(t, res, 1) && assert.NotNil(t, res[0].Employee) {
			assert.Equal(t, "Jane Doe", res[0].Employee.Name)
			assert.Equal(t, "jane@example.com", res[0].Employee.Email)
		}
	})

	t.Run("negative employee is forbidden before store access", func(t *testing.T) {
		deps := setupServiceTest(t)
		deps.repo.EXPECT().FindAll(gomock.Any(), gomock.Any()).Times(0)

		_, _, err := deps.service.ListAll(ctx, newEmployee(), leave.ListQuery{})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()

	pendingLeave := func() *leave.Leave {
		empID := uuid.New()
		return &leave.Leave{
			ID:         uuid.New(),
			EmployeeID: empID,
			TotalDays:  3,
			Status:     leave.StatusPending,
			Employee:   &leave.Employee{ID: empID, Name: "Jane Doe", Email: "jane@example.com"},
		}
	}

	t.Run("success approve appends one audit entry and notifies", func(t *testing.T) {
		deps := setupServiceTest(t)
		admin := newAdmin()
		l := pendingLeave()

		var appended *leave.AuditEntry
		var queued kafka.OutboxEvent
		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, l.ID.String()).Return(l, nil)
		deps.repo.EXPECT().UpdateStatus(ctx, l.ID.String(), leave.StatusApproved).Return(nil)
		deps.repo.EXPECT().AppendAudit(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, e *leave.AuditEntry) error {
			appended = e
			return nil
		})
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, e kafka.OutboxEvent) error {
			queued = e
			return nil
		})

		res, err := deps.service.SetStatus(ctx, admin, l.ID.String(), leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, res.Status)
		if assert.Len(t, res.Audit, 1) {
			assert.Contains(t, res.Audit[0].Action, admin.Name)
			assert.Contains(t, res.Audit[0].Action, "approved")
			assert.Equal(t, admin.ID, res.Audit[0].AdminID)
		}
		assert.Equal(t, "Admin Alice Admin approved leave request", appended.Action)
		assert.Equal(t, "Jane Doe", res.Employee.Name)

		assert.Equal(t, events.LeaveStatusTopic, queued.Topic)
		assert.Equal(t, l.ID.String(), queued.AggregateID)
		assert.Equal(t, kafka.OutboxStatusPending, queued.Status)

		if assert.Len(t, deps.notifier.entries, 1) {
			msg := deps.notifier.entries[0].Message
			assert.Contains(t, msg, "Alice Admin (alice@example.com)")
			assert.Contains(t, msg, "approved leave request #"+l.ID.String())
			assert.Contains(t, msg, "for Jane Doe")
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success repeated and reversing decisions are accepted", func(t *testing.T) {
		deps := setupServiceTest(t)
		admin := newAdmin()
		l := pendingLeave()
		l.Status = leave.StatusApproved
		l.Audit = []leave.AuditEntry{{ID: uuid.New(), LeaveID: l.ID, Action: "Admin Alice Admin approved leave request"}}

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, l.ID.String()).Return(l, nil)
		deps.repo.EXPECT().UpdateStatus(ctx, l.ID.String(), leave.StatusRejected).Return(nil)
		deps.repo.EXPECT().AppendAudit(ctx, gomock.Any()).Return(nil)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(ctx, gomock.Any()).Return(nil)

		res, err := deps.service.SetStatus(ctx, admin, l.ID.String(), leave.UpdateStatusRequest{Status: leave.StatusRejected})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, res.Status)
		assert.Len(t, res.Audit, 2)
		assert.Contains(t, res.Audit[1].Action, "rejected")
	})

	t.Run("negative unknown id is not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		id := uuid.NewString()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, id).Return(&leave.Leave{}, gorm.ErrRecordNotFound)

		_, err := deps.service.SetStatus(ctx, newAdmin(), id, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
		assert.Empty(t, deps.notifier.entries)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative malformed id is a validation error", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.SetStatus(ctx, newAdmin(), "not-a-uuid", leave.UpdateStatusRequest{Status: leave.StatusApproved})

		fields := fieldErrors(t, err)
		if assert.Len(t, fields, 1) {
			assert.Equal(t, "id", fields[0].Field)
		}
	})

	t.Run("negative status outside approved and rejected", func(t *testing.T) {
		deps := setupServiceTest(t)

		for _, status := range []string{"approved", "Pending", ""} {
			_, err := deps.service.SetStatus(ctx, newAdmin(), uuid.NewString(), leave.UpdateStatusRequest{Status: status})

			fields := fieldErrors(t, err)
			if assert.Len(t, fields, 1) {
				assert.Equal(t, "status", fields[0].Field)
			}
		}
	})

	t.Run("negative employee cannot decide", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.SetStatus(ctx, newEmployee(), uuid.NewString(), leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("negative audit failure rolls back without notifying", func(t *testing.T) {
		deps := setupServiceTest(t)
		l := pendingLeave()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByID(ctx, l.ID.String()).Return(l, nil)
		deps.repo.EXPECT().UpdateStatus(ctx, l.ID.String(), leave.StatusApproved).Return(nil)
		deps.repo.EXPECT().AppendAudit(ctx, gomock.Any()).Return(errors.New("insert failed"))

		_, err := deps.service.SetStatus(ctx, newAdmin(), l.ID.String(), leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.Error(t, err)
		assert.Empty(t, deps.notifier.entries)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

// memoryRepo is a small in-memory Repository used to run whole scenarios.
type memoryRepo struct {
	mu     sync.Mutex
	leaves map[uuid.UUID]*leave.Leave
	users  map[uuid.UUID]leave.Employee
}

func newMemoryRepo(users ...domain.Identity) *memoryRepo {
	r := &memoryRepo{leaves: map[uuid.UUID]*leave.Leave{}, users: map[uuid.UUID]leave.Employee{}}
	for _, u := range users {
		id := uuid.MustParse(u.ID)
		r.users[id] = leave.Employee{ID: id, Name: u.Name, Email: u.Email}
	}
	return r
}

func (r *memoryRepo) WithTx(*sql.Tx) leave.Repository { return r }

func (r *memoryRepo) Create(_ context.Context, l *leave.Leave) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.leaves[l.ID] = &cp
	return nil
}

func (r *memoryRepo) resolve(l leave.Leave) leave.Leave {
	if emp, ok := r.users[l.EmployeeID]; ok {
		l.Employee = &emp
	}
	l.Audit = append([]leave.AuditEntry(nil), l.Audit...)
	return l
}

func (r *memoryRepo) filter(keep func(leave.Leave) bool) []leave.Leave {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.Leave
	for _, l := range r.leaves {
		if keep(*l) {
			out = append(out, r.resolve(*l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryRepo) FindByEmployee(_ context.Context, employeeID string, _ leave.ListQuery) ([]leave.Leave, int64, error) {
	out := r.filter(func(l leave.Leave) bool { return l.EmployeeID.String() == employeeID })
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindAll(_ context.Context, _ leave.ListQuery) ([]leave.Leave, int64, error) {
	out := r.filter(func(leave.Leave) bool { return true })
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*leave.Leave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leaves[uuid.MustParse(id)]
	if !ok {
		return &leave.Leave{}, gorm.ErrRecordNotFound
	}
	resolved := r.resolve(*l)
	return &resolved, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leaves[uuid.MustParse(id)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Status = status
	return nil
}

func (r *memoryRepo) AppendAudit(_ context.Context, entry *leave.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.leaves[entry.LeaveID]
	l.Audit = append(l.Audit, *entry)
	return nil
}

func TestService_EmployeeAdminScenario(t *testing.T) {
	ctx := context.Background()
	employee := newEmployee()
	other := domain.Identity{ID: uuid.NewString(), Name: "Bob", Email: "bob@example.com", Role: domain.RoleEmployee}
	admin := newAdmin()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := newMemoryRepo(employee, other)
	notifier := &recordingNotifier{}
	svc := leave.NewService(db, repo, notifier, zap.NewNop())

	expectTx(t, sqlMock, true)
	created, err := svc.Create(ctx, employee, leave.CreateLeaveRequest{StartDate: "2024-03-01", EndDate: "2024-03-03", Reason: "Trip"})
	assert.NoError(t, err)
	assert.Equal(t, 3, created.TotalDays)
	assert.Equal(t, leave.StatusPending, created.Status)

	expectTx(t, sqlMock, true)
	_, err = svc.Create(ctx, other, leave.CreateLeaveRequest{StartDate: "2024-04-01", EndDate: "2024-04-01", Reason: "Errand"})
	assert.NoError(t, err)

	all, total, err := svc.ListAll(ctx, admin, leave.ListQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	expectTx(t, sqlMock, true)
	_, err = svc.SetStatus(ctx, admin, created.ID, leave.UpdateStatusRequest{Status: leave.StatusRejected})
	assert.NoError(t, err)

	mine, _, err := svc.ListMine(ctx, employee, leave.ListQuery{})
	assert.NoError(t, err)
	if assert.Len(t, mine, 1) {
		assert.Equal(t, created.ID, mine[0].ID)
		assert.Equal(t, leave.StatusRejected, mine[0].Status)
		if assert.Len(t, mine[0].Audit, 1) {
			assert.Contains(t, mine[0].Audit[0].Action, "rejected")
			assert.Equal(t, admin.ID, mine[0].Audit[0].AdminID)
		}
	}

	assert.Len(t, notifier.entries, 1)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
