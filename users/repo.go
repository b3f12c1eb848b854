package users

import "context"

// Repo persists users. Implementations return ErrUserNotFound,
// ErrUserExists and ErrEmailTaken.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}
