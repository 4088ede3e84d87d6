package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/domain"
	"go-leave/internal/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (bool, error)
}

type service struct {
	repo   user.Repository
	secret []byte
	ttl    time.Duration
	sf     *singleflight.Group
	now    func() time.Time
	logger *zap.Logger
}

func NewService(repo user.Repository, secret string, ttl time.Duration, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		sf:     &singleflight.Group{},
		now:    time.Now,
		logger: l,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	email := user.NormalizeEmail(req.Email)
	s.logger.Debug("register requested", zap.String("email", email))

	u, err := s.createUser(ctx, strings.TrimSpace(req.Name), email, req.Password, domain.RoleEmployee)
	if err != nil {
		return UserResponse{}, err
	}

	s.logger.Info("register success", zap.String("user_id", u.ID.String()))
	return mapToUserResponse(*u), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email := user.NormalizeEmail(req.Email)

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("login unknown email", zap.String("email", email))
			return LoginResponse{}, autherrors.ErrInvalidCredentials
		}
		s.logger.Error("login lookup failed", zap.Error(err))
		return LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		s.logger.Warn("login wrong password", zap.String("user_id", u.ID.String()))
		return LoginResponse{}, autherrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(*u)
	if err != nil {
		s.logger.Error("login sign token failed", zap.Error(err))
		return LoginResponse{}, err
	}

	s.logger.Info("login success", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return LoginResponse{Token: token, User: mapToUserResponse(*u)}, nil
}

// Authenticate verifies the token signature and expiry, then loads the current user
// so role changes and deletions take effect without waiting for token expiry.
func (s *service) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, autherrors.ErrTokenExpired
		}
		return domain.Identity{}, autherrors.ErrInvalidToken
	}

	userID, err := parsed.Claims.GetSubject()
	if err != nil || userID == "" {
		return domain.Identity{}, autherrors.ErrInvalidToken
	}
	if _, err := uuid.Parse(userID); err != nil {
		return domain.Identity{}, autherrors.ErrInvalidToken
	}

	v, err, _ := s.sf.Do(userID, func() (any, error) {
		return s.repo.FindByID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("authenticate unknown user", zap.String("user_id", userID))
			return domain.Identity{}, autherrors.ErrInvalidToken
		}
		s.logger.Error("authenticate lookup failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Identity{}, err
	}

	return v.(*user.User).Identity(), nil
}

// EnsureAdmin creates the admin account when no user owns the email yet. It reports
// whether an account was created.
func (s *service) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = user.NormalizeEmail(email)

	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		s.logger.Info("admin user already exists", zap.String("email", email))
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	u, err := s.createUser(ctx, name, email, password, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.logger.Info("admin user created", zap.String("user_id", u.ID.String()), zap.String("email", email))
	return true, nil
}

func (s *service) createUser(ctx context.Context, name, email, password string, role domain.Role) (*user.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:       uuid.New(),
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if isUniqueEmailViolation(err) {
			s.logger.Warn("create user duplicate email", zap.String("email", email))
			return nil, autherrors.ErrEmailAlreadyRegistered
		}
		s.logger.Error("create user persist failed", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (s *service) issueToken(u user.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func isUniqueEmailViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func mapToUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}
