package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for request validation
type RegisterRequest struct {
	ShopName      string `json:"shop_name" binding:"required,min=2"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required,len=9,numeric"`
	Password      string `json:"password" binding:"required,shop_password"`
	Address       string `json:"address"`
	FooterMessage string `json:"footer_message"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	ShopName      string  `json:"shop_name" binding:"omitempty,min=2"`
	Phone         string  `json:"phone" binding:"omitempty,len=9,numeric"`
	Address       *string `json:"address"`
	FooterMessage *string `json:"footer_message"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,shop_password"`
}

type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type CreateEmployeeRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,len=9,numeric"`
	Password string `json:"password" binding:"required,shop_password"`
}

// UserResponse never exposes the password hash
type UserResponse struct {
	ID            string  `json:"id"`
	ShopName      string  `json:"shop_name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Role          string  `json:"role"`
	ParentID      *string `json:"parent_id"`
	Address       string  `json:"address"`
	FooterMessage string  `json:"footer_message"`
	CreatedAt     string  `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, actor Actor) (*UserResponse, error)
	UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*UserResponse, error)
	UpdatePassword(ctx context.Context, actor Actor, req UpdatePasswordRequest) error
	VerifyPassword(ctx context.Context, actor Actor, password string) error
	CreateEmployee(ctx context.Context, actor Actor, req CreateEmployeeRequest) (*UserResponse, error)
	ListEmployees(ctx context.Context, actor Actor) ([]UserResponse, error)
	DeleteEmployee(ctx context.Context, actor Actor, id string) error
}

type authService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	secret    []byte
	tokenTTL  time.Duration
	hashCost  int
}

// NewAuthService returns an AuthService signing HS256 tokens with secret
func NewAuthService(
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	secret []byte,
	tokenTTL time.Duration,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		secret:    secret,
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
	}
}

// ValidPassword reports whether p has 6 to 8 characters, only letters and digits, at least one of each.
func ValidPassword(p string) bool {
	if len(p) < 6 || len(p) > 8 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return false
		}
	}
	return letter && digit
}

func toUserResponse(u *model.User) UserResponse {
	res := UserResponse{
		ID:            u.ID.String(),
		ShopName:      u.ShopName,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		Address:       u.Address,
		FooterMessage: u.FooterMessage,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
	if u.ParentID != nil {
		parent := u.ParentID.String()
		res.ParentID = &parent
	}
	return res
}

func (s *authService) hashPassword(password string) (string, error) {
	if !ValidPassword(password) {
		return "", fmt.Errorf("%w: password must contain letters and digits (6 to 8 characters)", ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *authService) ensureUnique(ctx context.Context, email, phone string) error {
	if email != "" {
		if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: email already in use", ErrConflict)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}
	}
	if phone != "" {
		if _, err := s.userRepo.GetByPhone(ctx, phone); err == nil {
			return fmt.Errorf("%w: phone number already in use", ErrConflict)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}
	}
	return nil
}

func (s *authService) issueToken(u *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID.String(),
		"role":  u.Role,
		"owner": u.OwnerID().String(),
		"iat":   now.Unix(),
	}
	if s.tokenTTL > 0 {
		claims["exp"] = now.Add(s.tokenTTL).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUnique(ctx, email, req.Phone); err != nil {
		return nil, err
	}

	hashed, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ShopName:      strings.TrimSpace(req.ShopName),
		Email:         email,
		Phone:         req.Phone,
		Password:      hashed,
		Role:          model.RoleAdmin,
		Address:       req.Address,
		FooterMessage: req.FooterMessage,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidLogin
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *authService) loadUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *authService) GetProfile(ctx context.Context, actor Actor) (*UserResponse, error) {
	user, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *authService) UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" && req.Phone != user.Phone {
		if err := s.ensureUnique(ctx, "", req.Phone); err != nil {
			return nil, err
		}
		user.Phone = req.Phone
	}
	if req.ShopName != "" {
		user.ShopName = strings.TrimSpace(req.ShopName)
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.FooterMessage != nil {
		user.FooterMessage = *req.FooterMessage
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *authService) UpdatePassword(ctx context.Context, actor Actor, req UpdatePasswordRequest) error {
	user, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrInvalidPassword
	}

	hashed, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) VerifyPassword(ctx context.Context, actor Actor, password string) error {
	user, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (s *authService) CreateEmployee(ctx context.Context, actor Actor, req CreateEmployeeRequest) (*UserResponse, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	owner, err := s.loadUser(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUnique(ctx, email, req.Phone); err != nil {
		return nil, err
	}
	hashed, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	parent := owner.ID
	employee := &model.User{
		ShopName: owner.ShopName,
		Email:    email,
		Phone:    req.Phone,
		Password: hashed,
		Role:     model.RoleEmployee,
		ParentID: &parent,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, employee); err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateUser, employee.ID.String(), employee.Email,
			map[string]interface{}{"email": employee.Email, "phone": employee.Phone})
	})
	if err != nil {
		return nil, err
	}

	res := toUserResponse(employee)
	return &res, nil
}

func (s *authService) ListEmployees(ctx context.Context, actor Actor) ([]UserResponse, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListEmployees(ctx, actor.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, nil
}

func (s *authService) DeleteEmployee(ctx context.Context, actor Actor, id string) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	employeeID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid employee id", ErrValidation)
	}

	employee, err := s.loadUser(ctx, employeeID)
	if err != nil {
		return err
	}
	// only employees of the caller's own shop
	if employee.ParentID == nil || *employee.ParentID != actor.OwnerID {
		return fmt.Errorf("%w: employee", ErrNotFound)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Delete(txCtx, employee.ID); err != nil {
			return fmt.Errorf("failed to delete employee: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteUser, employee.ID.String(), employee.Email,
			map[string]interface{}{"deleted": true})
	})
}
