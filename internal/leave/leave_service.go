package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go-leave/internal/audit"
	"go-leave/internal/domain"
	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxReasonLength = 200
	dateLayout      = "2006-01-02"
	day             = 24 * time.Hour
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, caller domain.Identity, req CreateLeaveRequest) (LeaveResponse, error)
	ListMine(ctx context.Context, caller domain.Identity, q ListQuery) ([]LeaveResponse, int64, error)
	ListAll(ctx context.Context, caller domain.Identity, q ListQuery) ([]LeaveResponse, int64, error)
	SetStatus(ctx context.Context, caller domain.Identity, id string, req UpdateStatusRequest) (LeaveResponse, error)
}

// AuditNotifier receives one line per status change after it is committed.
type AuditNotifier interface {
	Log(ctx context.Context, entry audit.Entry)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	audit  AuditNotifier
	now    func() time.Time
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, notifier AuditNotifier, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, notifier, logger...)
}

// NewServiceWithOutbox also queues a leave_status_changed event in the same
// transaction as every status change.
func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	notifier AuditNotifier,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: outboxRepo,
		audit:  notifier,
		now:    time.Now,
		logger: l,
	}
}

func (s *service) Create(ctx context.Context, caller domain.Identity, req CreateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create leave requested",
		zap.String("employee_id", caller.ID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if !caller.Has(domain.RoleEmployee) {
		return LeaveResponse{}, leaveerrors.ErrForbidden
	}
	employeeUUID, err := uuid.Parse(caller.ID)
	if err != nil {
		return LeaveResponse{}, apperror.ErrUnauthorized
	}

	startDate, endDate, reason, err := validateCreateRequest(req)
	if err != nil {
		log.Warn("create leave validation failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	now := s.now().UTC()
	l := &Leave{
		ID:         uuid.New(),
		EmployeeID: employeeUUID,
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDays:  CountDays(startDate, endDate),
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("create leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, l); err != nil {
		log.Error("create leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("create leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	metrics.LeaveRequestsCreatedTotal.Inc()
	log.Info("create leave success",
		zap.String("leave_id", l.ID.String()),
		zap.Int("total_days", l.TotalDays),
	)
	return mapToResponse(*l), nil
}

func (s *service) ListMine(ctx context.Context, caller domain.Identity, q ListQuery) ([]LeaveResponse, int64, error) {
	if !caller.Has(domain.RoleEmployee) {
		return nil, 0, leaveerrors.ErrForbidden
	}

	leaves, total, err := s.repo.FindByEmployee(ctx, caller.ID, q)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("list my leaves failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(leaves), total, nil
}

func (s *service) ListAll(ctx context.Context, caller domain.Identity, q ListQuery) ([]LeaveResponse, int64, error) {
	if !caller.Has(domain.RoleAdmin) {
		contextutil.GetLogger(ctx, s.logger).Warn("list all leaves forbidden", zap.String("role", string(caller.Role)))
		return nil, 0, leaveerrors.ErrForbidden
	}

	leaves, total, err := s.repo.FindAll(ctx, q)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("list all leaves failed", zap.Error(err))
		return nil, 0, err
	}
	return mapToListResponse(leaves), total, nil
}

// SetStatus overwrites the status whatever its current value. Repeated or reversing
// decisions are accepted and each one appends its own audit entry.
func (s *service) SetStatus(ctx context.Context, caller domain.Identity, id string, req UpdateStatusRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("set leave status requested",
		zap.String("leave_id", id),
		zap.String("status", req.Status),
		zap.String("admin_id", caller.ID),
	)

	if !caller.Has(domain.RoleAdmin) {
		return LeaveResponse{}, leaveerrors.ErrForbidden
	}
	adminUUID, err := uuid.Parse(caller.ID)
	if err != nil {
		return LeaveResponse{}, apperror.ErrUnauthorized
	}

	var violations []apperror.FieldError
	leaveUUID, err := uuid.Parse(id)
	if err != nil {
		violations = append(violations, apperror.InvalidField("id"))
	}
	if req.Status != StatusApproved && req.Status != StatusRejected {
		violations = append(violations, apperror.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: %s, %s", StatusApproved, StatusRejected),
		})
	}
	if len(violations) > 0 {
		log.Warn("set leave status validation failed", zap.Int("violations", len(violations)))
		return LeaveResponse{}, apperror.Validation(violations...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("set leave status begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, leaveUUID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("set leave status not found", zap.String("leave_id", id))
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		log.Error("set leave status lookup failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	previous := l.Status
	if err := qtx.UpdateStatus(ctx, l.ID.String(), req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		log.Error("set leave status persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	at := s.now().UTC()
	entry := AuditEntry{
		ID:      uuid.New(),
		LeaveID: l.ID,
		Action:  fmt.Sprintf("Admin %s %s leave request", caller.Name, strings.ToLower(req.Status)),
		AdminID: adminUUID,
		At:      at,
	}
	if err := qtx.AppendAudit(ctx, &entry); err != nil {
		log.Error("set leave status audit persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if s.outbox != nil {
		if err := s.queueStatusChanged(ctx, tx, l, caller, previous, req.Status, at); err != nil {
			log.Error("set leave status outbox persist failed", zap.Error(err))
			return LeaveResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("set leave status commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	l.Status = req.Status
	l.UpdatedAt = at
	l.Audit = append(l.Audit, entry)

	metrics.LeaveStatusTransitionsTotal.WithLabelValues(previous, req.Status).Inc()
	s.notify(ctx, caller, l, req.Status, at)

	log.Info("set leave status success",
		zap.String("leave_id", l.ID.String()),
		zap.String("from", previous),
		zap.String("to", req.Status),
	)
	return mapToResponse(*l), nil
}

func (s *service) queueStatusChanged(
	ctx context.Context,
	tx *sql.Tx,
	l *Leave,
	caller domain.Identity,
	previous, status string,
	at time.Time,
) error {
	rid := contextutil.GetRequestID(ctx)
	event := events.LeaveStatusChangedEvent{
		EventType:      events.LeaveStatusChangedEventType,
		RequestID:      rid,
		LeaveID:        l.ID.String(),
		EmployeeID:     l.EmployeeID.String(),
		AdminID:        caller.ID,
		PreviousStatus: previous,
		Status:         status,
		OccurredAt:     at,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "leave",
		AggregateID:   l.ID.String(),
		EventType:     event.EventType,
		Topic:         events.LeaveStatusTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) notify(ctx context.Context, caller domain.Identity, l *Leave, status string, at time.Time) {
	if s.audit == nil {
		return
	}

	employeeName := "unknown employee"
	if l.Employee != nil && l.Employee.Name != "" {
		employeeName = l.Employee.Name
	}

	s.audit.Log(ctx, audit.Entry{
		Action: "leave." + strings.ToLower(status),
		Message: fmt.Sprintf("Admin %s (%s) %s leave request #%s for %s at %s",
			caller.Name, caller.Email, strings.ToLower(status), l.ID, employeeName, at.Format(time.RFC3339)),
		Meta: map[string]any{
			"leave_id":    l.ID.String(),
			"admin_id":    caller.ID,
			"employee_id": l.EmployeeID.String(),
			"status":      status,
		},
	})
}

// CountDays returns the inclusive number of calendar days covered by start..end.
// Partial days round up.
func CountDays(start, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	return int((diff+day-1)/day) + 1
}

func validateCreateRequest(req CreateLeaveRequest) (time.Time, time.Time, string, error) {
	var violations []apperror.FieldError

	startDate, startErr := parseDate(req.StartDate)
	if startErr != nil {
		violations = append(violations, dateViolation("startDate", req.StartDate))
	}
	endDate, endErr := parseDate(req.EndDate)
	if endErr != nil {
		violations = append(violations, dateViolation("endDate", req.EndDate))
	}

	reason := strings.TrimSpace(req.Reason)
	switch {
	case reason == "":
		violations = append(violations, apperror.RequiredField("reason"))
	case utf8.RuneCountInString(reason) > MaxReasonLength:
		violations = append(violations, apperror.FieldError{
			Field:   "reason",
			Message: fmt.Sprintf("reason must be at most %d characters", MaxReasonLength),
		})
	}

	if len(violations) > 0 {
		return time.Time{}, time.Time{}, "", apperror.Validation(violations...)
	}

	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, "", leaveerrors.ErrInvalidRange
	}
	return startDate, endDate, reason, nil
}

func dateViolation(field, value string) apperror.FieldError {
	if strings.TrimSpace(value) == "" {
		return apperror.RequiredField(field)
	}
	return apperror.FieldError{
		Field:   field,
		Message: fmt.Sprintf("%s must be an ISO-8601 date (YYYY-MM-DD) or timestamp", field),
	}
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Dates are taken as UTC
// midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func mapToResponse(l Leave) LeaveResponse {
	res := LeaveResponse{
		ID:         l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		StartDate:  l.StartDate,
		EndDate:    l.EndDate,
		TotalDays:  l.TotalDays,
		Reason:     l.Reason,
		Status:     l.Status,
		Audit:      make([]AuditEntryResponse, 0, len(l.Audit)),
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
	if l.Employee != nil {
		res.Employee = &EmployeeResponse{
			ID:    l.Employee.ID.String(),
			Name:  l.Employee.Name,
			Email: l.Employee.Email,
		}
	}
	for _, a := range l.Audit {
		res.Audit = append(res.Audit, AuditEntryResponse{
			Action:  a.Action,
			AdminID: a.AdminID.String(),
			At:      a.At,
		})
	}
	return res
}

func mapToListResponse(leaves []Leave) []LeaveResponse {
	res := make([]LeaveResponse, 0, len(leaves))
	for _, l := range leaves {
		res = append(res, mapToResponse(l))
	}
	return res
}
