package models

import (
	"time"

	"article-api/backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

// UserStatus is the account state
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusBanned   UserStatus = "banned"
)

// User represents a user in the system
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName     string     `gorm:"size:100" json:"full_name,omitempty"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         jwt.Role   `gorm:"size:20;default:user;index" json:"role"`
	Status       UserStatus `gorm:"size:20;default:active" json:"status"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserCreate is the registration payload
type UserCreate struct {
	Username string     `json:"username" binding:"required,min=3,max=50"`
	Email    string     `json:"email" binding:"required,email"`
	FullName string     `json:"full_name" binding:"max=100"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     jwt.Role   `json:"role" binding:"omitempty,oneof=user moderator admin"`
	Status   UserStatus `json:"status" binding:"omitempty,oneof=active inactive banned"`
}

// UserUpdate carries only the fields to change
type UserUpdate struct {
	Username *string     `json:"username" binding:"omitempty,min=3,max=50"`
	Email    *string     `json:"email" binding:"omitempty,email"`
	FullName *string     `json:"full_name" binding:"omitempty,max=100"`
	Role     *jwt.Role   `json:"role" binding:"omitempty,oneof=user moderator admin"`
	Status   *UserStatus `json:"status" binding:"omitempty,oneof=active inactive banned"`
}

// Empty reports whether no field was supplied
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.FullName == nil && u.Role == nil && u.Status == nil
}

// UserLogin is the JSON login payload
type UserLogin struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Token is returned by the login endpoints
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NewBearerToken wraps an access token
func NewBearerToken(accessToken string) Token {
	return Token{AccessToken: accessToken, TokenType: "bearer"}
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	Role      jwt.Role   `json:"role"`
	Status    UserStatus `json:"status"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ToResponse converts a User model to a UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Status:    u.Status,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
