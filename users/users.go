package users

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is the backend record for an identity-provider account. ID is the provider uid.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"` // never serialized
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword reports whether password matches the stored hash. Users without a hash never match.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, u.PasswordHash)
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	copied := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		copied.CreatedAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		copied.UpdatedAt = &t
	}
	return &copied
}
