package tokenrepofake

import (
	"context"
	"maps"
	"sync"

	"github.com/brainbox-app/brainbox/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory token.Repo. Errors can be injected to simulate unavailable storage.
type FakeTokenRepo struct {
	values   map[string]string
	getErr   error
	applyErr error
	applies  int
	lock     sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		values: make(map[string]string),
	}
}

func (tr *FakeTokenRepo) Get(_ context.Context, key string) (string, bool, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	if tr.getErr != nil {
		return "", false, tr.getErr
	}
	value, ok := tr.values[key]
	return value, ok, nil
}

func (tr *FakeTokenRepo) Apply(_ context.Context, batch token.Batch) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if tr.applyErr != nil {
		return tr.applyErr
	}
	for k, v := range batch.Set {
		tr.values[k] = v
	}
	for _, k := range batch.Delete {
		delete(tr.values, k)
	}
	tr.applies++
	return nil
}

// Put writes a single entry outside of a batch, used to build partial records in tests.
func (tr *FakeTokenRepo) Put(key, value string) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.values[key] = value
}

func (tr *FakeTokenRepo) Values() map[string]string {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return maps.Clone(tr.values)
}

func (tr *FakeTokenRepo) Applies() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.applies
}

func (tr *FakeTokenRepo) SetGetError(err error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.getErr = err
}

func (tr *FakeTokenRepo) SetApplyError(err error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.applyErr = err
}
