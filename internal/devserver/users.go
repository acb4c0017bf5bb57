package devserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"revornix/pkg/logger"
)

// MinPasswordLength минимальная длина пароля.
const MinPasswordLength = 6

const errHashPassword = "failed to generate password hash"

// Ошибки реестра пользователей.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User учетная запись.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRegistry хранит пользователей в памяти, пароли в виде bcrypt хэшей.
type UserRegistry struct {
	cost int

	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

// NewUserRegistry создает реестр. Стоимость ниже bcrypt.MinCost заменяется стандартной.
func NewUserRegistry(cost int) *UserRegistry {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &UserRegistry{
		cost:    cost,
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

// Register создает пользователя.
func (r *UserRegistry) Register(_ context.Context, email, username, password string) (*User, error) {
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: at least %d characters required", ErrInvalidPassword, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errHashPassword, err)
	}

	key := normalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[key]; ok {
		return nil, ErrUserExists
	}

	user := &User{
		ID:           logger.GenerateRequestID(),
		Email:        key,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[user.ID] = user
	r.byEmail[key] = user

	return user, nil
}

// Authenticate проверяет email и пароль.
func (r *UserRegistry) Authenticate(_ context.Context, email, password string) (*User, error) {
	r.mu.RLock()
	user, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	return user, nil
}

// Get возвращает пользователя по ID.
func (r *UserRegistry) Get(id string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	return user, ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
