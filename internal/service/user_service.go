package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

// LoginRequest accepts either a username or an email as the login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type UserService interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Me(ctx context.Context, userID string) (UserResponse, error)
	CreateUser(ctx context.Context, actorID string, req CreateUserRequest) (UserResponse, error)
	GetUser(ctx context.Context, id string) (UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actorID, id string, req UpdateUserRequest) (UserResponse, error)
	DeleteUser(ctx context.Context, actorID, id string) error
	// EnsureAdmin creates the first admin account when the users table is empty.
	EnsureAdmin(ctx context.Context, username, email, password string) error
}

type userService struct {
	repo      repository.UserRepository
	txManager repository.TransactionManager
	audit     auditor
	tokens    TokenIssuer
}

func NewUserService(repo repository.UserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, tokens TokenIssuer) UserService {
	return &userService{repo: repo, txManager: txManager, audit: auditor{repo: auditRepo}, tokens: tokens}
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	login := strings.TrimSpace(req.Login)
	var (
		user *model.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.repo.GetByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.repo.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResponse{}, apperror.ErrInvalidCredentials
		}
		return LoginResponse{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return LoginResponse{}, apperror.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      toUserResponse(user, true),
	}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperror.ErrUnauthorized
		}
		return UserResponse{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return toUserResponse(user, true), nil
}

func (s *userService) CreateUser(ctx context.Context, actorID string, req CreateUserRequest) (UserResponse, error) {
	if err := validateUserFields(req.Email, req.Role); err != nil {
		return UserResponse{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, user.Username, user.Email); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.audit.log(txCtx, actorID, model.ActionCreateUser, user.ID.String(), user.Username,
			map[string]string{"role": user.Role})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user, false), nil
}

func (s *userService) GetUser(ctx context.Context, id string) (UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return UserResponse{}, err
	}
	user, err := s.repo.GetByID(ctx, userID.String())
	if err != nil {
		return UserResponse{}, notFound(err, "User")
	}
	return toUserResponse(user, true), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	return lo.Map(users, func(u model.User, _ int) UserResponse { return toUserResponse(&u, false) }), total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID, id string, req UpdateUserRequest) (UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return UserResponse{}, err
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.repo.GetByID(txCtx, userID.String())
		if err != nil {
			return notFound(err, "User")
		}

		if req.Role != "" {
			if !model.ValidRole(req.Role) {
				return invalidRole()
			}
			if user.Role == model.RoleAdmin && req.Role != model.RoleAdmin && actorID == user.ID.String() {
				return apperror.NewConflictError("admins cannot demote themselves")
			}
			user.Role = req.Role
		}
		username := strings.TrimSpace(req.Username)
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if username == user.Username {
			username = ""
		}
		if email == user.Email {
			email = ""
		}
		if err := s.ensureUnique(txCtx, username, email); err != nil {
			return err
		}
		if username != "" {
			user.Username = username
		}
		if email != "" {
			user.Email = email
		}
		if req.Phone != "" {
			user.Phone = req.Phone
		}
		if req.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.Password = string(hashed)
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return s.audit.log(txCtx, actorID, model.ActionUpdateUser, user.ID.String(), user.Username,
			map[string]any{"role": user.Role, "password_changed": req.Password != ""})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user, false), nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, id string) error {
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if userID.String() == actorID {
		return apperror.NewConflictError("users cannot delete themselves")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, userID.String())
		if err != nil {
			return notFound(err, "User")
		}
		if err := s.repo.Delete(txCtx, user.ID.String()); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.audit.log(txCtx, actorID, model.ActionDeleteUser, user.ID.String(), user.Username, nil)
	})
}

func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 || password == "" {
		return nil
	}
	_, err = s.CreateUser(ctx, "", CreateUserRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
	return err
}

func (s *userService) ensureUnique(ctx context.Context, username, email string) error {
	if username != "" {
		if _, err := s.repo.GetByUsername(ctx, username); err == nil {
			return apperror.NewConflictError("username already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
	}
	if email != "" {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return apperror.NewConflictError("email already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}
	}
	return nil
}

func validateUserFields(email, role string) error {
	var fieldErrors []apperror.FieldError
	if _, err := mail.ParseAddress(email); err != nil {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "email", Message: "invalid email format"})
	}
	if !model.ValidRole(role) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "role", Message: "must be admin, accountant or staff"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func invalidRole() error {
	return apperror.NewValidationError([]apperror.FieldError{{Field: "role", Message: "must be admin, accountant or staff"}})
}

func toUserResponse(u *model.User, withPermissions bool) UserResponse {
	res := UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
	if withPermissions {
		res.Permissions = u.Permissions()
	}
	return res
}
