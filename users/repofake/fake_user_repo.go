package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/brainbox-app/brainbox/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[user.ID]; ok {
		return users.ErrUserExists
	}
	if _, ok := ur.emailIds[user.Email]; ok {
		return users.ErrEmailTaken
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userID, ok := ur.emailIds[email]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return ur.users[userID].Clone(), nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return users.ErrUserNotFound
	}
	if owner, ok := ur.emailIds[user.Email]; ok && owner != user.ID {
		return users.ErrEmailTaken
	}
	delete(ur.emailIds, existing.Email)
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	delete(ur.emailIds, user.Email)
	delete(ur.users, id)
	return nil
}
