package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-form-editor/internal/model"
)

type Users struct {
	mu         sync.RWMutex
	byID       map[string]model.User
	byUsername map[string]string
}

func NewUsers() *Users {
	return &Users{
		byID:       make(map[string]model.User),
		byUsername: make(map[string]string),
	}
}

func (u *Users) FindByID(_ context.Context, id string) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (u *Users) FindByUsername(_ context.Context, username string) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.byUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u.byID[id], nil
}

func (u *Users) Create(_ context.Context, user model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(user.Username))
	if _, exists := u.byUsername[key]; exists {
		return model.ErrUserAlreadyExists
	}

	u.byID[user.ID] = user
	u.byUsername[key] = user.ID
	return nil
}

func (u *Users) Count(context.Context) (int, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return len(u.byID), nil
}

type Tokens struct {
	mu     sync.Mutex
	tokens map[string]storedToken
	now    func() time.Time
}

type storedToken struct {
	userID    string
	expiresAt time.Time
}

func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]storedToken), now: time.Now}
}

func (t *Tokens) Store(_ context.Context, token string, userID string, expiresAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tokens[token] = storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (t *Tokens) Validate(_ context.Context, token string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored, ok := t.tokens[token]
	if !ok {
		return "", model.ErrTokenNotFound
	}
	if !stored.expiresAt.After(t.now()) {
		delete(t.tokens, token)
		return "", model.ErrTokenExpired
	}
	return stored.userID, nil
}

func (t *Tokens) Revoke(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.tokens, token)
	return nil
}
