package service

import (
	"context"
	"errors"
	"strings"

	"article-api/backend/internal/models"
	"article-api/backend/pkg/jwt"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("inactive user")
	ErrNoFields           = errors.New("no fields to update")
	ErrForbidden          = errors.New("not enough permissions")
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateToken(userID uint, username string, role jwt.Role) (string, error)
}

// Actor is the authenticated caller performing an operation
type Actor struct {
	ID   uint
	Role jwt.Role
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == jwt.RoleAdmin
}

// UserService handles user-related operations
type UserService struct {
	db     *gorm.DB
	tokens TokenIssuer
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, tokens TokenIssuer) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// Register creates a user through the public endpoint; the role is always user
func (s *UserService) Register(ctx context.Context, req *models.UserCreate) (*models.User, error) {
	create := *req
	create.Role = jwt.RoleUser
	create.Status = models.StatusActive
	return s.CreateUser(ctx, &create)
}

// CreateUser creates a user with the requested role and status
func (s *UserService) CreateUser(ctx context.Context, req *models.UserCreate) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = jwt.RoleUser
	}
	status := req.Status
	if status == "" {
		status = models.StatusActive
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates a user and returns a signed access token
func (s *UserService) Login(ctx context.Context, req *models.UserLogin) (*models.User, string, error) {
	user, err := s.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !models.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CurrentUser resolves the token holder; users that are not active are refused
func (s *UserService) CurrentUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive || user.Status != models.StatusActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users, newest first
func (s *UserService) ListUsers(ctx context.Context, q models.PageQuery) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + term + "%"
		db = db.Where("username LIKE ? OR email LIKE ? OR full_name LIKE ?", like, like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := db.Order("created_at DESC").Order("id DESC").
		Offset(q.Offset()).Limit(q.PageSize).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CanAccess reports whether actor may read or edit the user with id
func CanAccess(actor Actor, id uint) bool {
	return actor.IsAdmin() || actor.ID == id
}

// UpdateUser applies the supplied fields. Role and status changes from
// non-admins are ignored.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id uint, req *models.UserUpdate) (*models.User, error) {
	if !CanAccess(actor, id) {
		return nil, ErrForbidden
	}
	update := *req
	if !actor.IsAdmin() {
		update.Role, update.Status = nil, nil
	}
	if update.Empty() {
		return nil, ErrNoFields
	}
	req = &update

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if req.Username != nil || req.Email != nil {
		username, email := user.Username, user.Email
		if req.Username != nil {
			username = *req.Username
		}
		if req.Email != nil {
			email = *req.Email
		}
		var count int64
		if err := db.Model(&models.User{}).
			Where("id <> ? AND (username = ? OR email = ?)", id, username, email).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrUserAlreadyExists
		}
		user.Username, user.Email = username, email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
		user.IsActive = *req.Status == models.StatusActive
	}

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user together with their articles
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", id).Delete(&models.Article{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
