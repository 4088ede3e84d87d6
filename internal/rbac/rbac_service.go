package rbac

import (
	"sync"

	"go-leave/internal/domain"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

const ResourceLeave = "leave"

const (
	ActionCreate  = "create"
	ActionReadOwn = "read_own"
	ActionReadAll = "read_all"
	ActionApprove = "approve"
)

// Permission grants one role an action on a resource.
type Permission struct {
	Role     domain.Role
	Resource string
	Action   string
}

// DefaultPolicy gives each capability to exactly one role.
var DefaultPolicy = []Permission{
	{Role: domain.RoleEmployee, Resource: ResourceLeave, Action: ActionCreate},
	{Role: domain.RoleEmployee, Resource: ResourceLeave, Action: ActionReadOwn},
	{Role: domain.RoleAdmin, Resource: ResourceLeave, Action: ActionReadAll},
	{Role: domain.RoleAdmin, Resource: ResourceLeave, Action: ActionApprove},
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer, policy []Permission, logger ...*zap.Logger) (Service, error) {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}

	for _, p := range policy {
		if _, err := enforcer.AddPolicy(string(p.Role), p.Resource, p.Action); err != nil {
			return nil, err
		}
	}
	l.Info("rbac policy loaded", zap.Int("rules", len(policy)))

	return &service{enforcer: enforcer, logger: l}, nil
}

func (s *service) Enforce(req domain.EnforceRequest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed, err := s.enforcer.Enforce(string(req.Role), req.Resource, req.Action)
	if err != nil {
		s.logger.Error("rbac enforce failed",
			zap.String("role", string(req.Role)),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("rbac enforce result",
		zap.String("role", string(req.Role)),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}
