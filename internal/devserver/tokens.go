package devserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"revornix/pkg/logger"
)

// Константы для работы с токенами.
const (
	msgTokenIssued   = "token pair issued"
	msgTokenRotated  = "refresh token rotated"
	msgTokenRejected = "access token rejected"
	msgAccessExpired = "all access tokens expired"
	errSigningToken  = "error signing token"
	errCtxParsing    = "parsing token"
	errCtxValidating = "validating token"
	errCtxRefreshing = "refreshing token"
	tokenTypeBearer  = "bearer"
)

// Ошибки токенов.
var (
	ErrInvalidToken        = errors.New("invalid access token")
	ErrExpiredToken        = errors.New("access token has expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidAlgorithm    = errors.New("invalid signing algorithm")
)

// TokenPair ответ логина, регистрации и refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Principal владелец действительного токена доступа.
type Principal struct {
	UserID   string
	Username string
}

// Claims JWT токена доступа. Generation позволяет разом инвалидировать выданные токены.
type Claims struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Generation uint64 `json:"gen"`
	jwt.RegisteredClaims
}

type refreshSession struct {
	principal Principal
	expiresAt time.Time
}

// TokenIssuer выдает короткоживущие HS256 токены доступа и одноразовые непрозрачные refresh токены.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu         sync.Mutex
	generation uint64
	sessions   map[string]refreshSession
}

// NewTokenIssuer создает выдачу токенов.
func NewTokenIssuer(cfg JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		sessions:   make(map[string]refreshSession),
	}
}

// Issue выдает новую пару для пользователя.
func (t *TokenIssuer) Issue(ctx context.Context, p Principal) (*TokenPair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pair, err := t.issueLocked(p)
	if err != nil {
		logger.Log(ctx).Error(ctx, errSigningToken, zap.Error(err))
		return nil, err
	}

	logger.Log(ctx).Debug(ctx, msgTokenIssued, zap.String("user_id", p.UserID))
	return pair, nil
}

func (t *TokenIssuer) issueLocked(p Principal) (*TokenPair, error) {
	now := t.now()

	claims := Claims{
		UserID:     p.UserID,
		Username:   p.Username,
		Generation: t.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			ID:        logger.GenerateRequestID(),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errSigningToken, err)
	}

	refresh := logger.GenerateRequestID()
	t.sessions[refresh] = refreshSession{principal: p, expiresAt: now.Add(t.refreshTTL)}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

// Validate проверяет токен доступа.
func (t *TokenIssuer) Validate(ctx context.Context, tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		logger.Log(ctx).Debug(ctx, msgTokenRejected, zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", errCtxValidating, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%s: %w: %w", errCtxParsing, ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", errCtxValidating, ErrInvalidToken)
	}

	t.mu.Lock()
	current := t.generation
	t.mu.Unlock()
	if claims.Generation < current {
		return nil, fmt.Errorf("%s: %w", errCtxValidating, ErrExpiredToken)
	}

	return &Principal{UserID: claims.UserID, Username: claims.Username}, nil
}

// Rotate обменивает refresh токен на новую пару. Старый refresh токен погашается.
func (t *TokenIssuer) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[refreshToken]
	if !ok {
		return nil, fmt.Errorf("%s: %w", errCtxRefreshing, ErrInvalidRefreshToken)
	}
	delete(t.sessions, refreshToken)

	if !t.now().Before(session.expiresAt) {
		return nil, fmt.Errorf("%s: %w: expired", errCtxRefreshing, ErrInvalidRefreshToken)
	}

	pair, err := t.issueLocked(session.principal)
	if err != nil {
		return nil, err
	}

	logger.Log(ctx).Debug(ctx, msgTokenRotated, zap.String("user_id", session.principal.UserID))
	return pair, nil
}

// Revoke погашает refresh токен. Неизвестный токен игнорируется.
func (t *TokenIssuer) Revoke(refreshToken string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, refreshToken)
}

// ExpireAccessTokens делает все ранее выданные токены доступа просроченными.
// Refresh токены остаются действительными.
func (t *TokenIssuer) ExpireAccessTokens(ctx context.Context) {
	t.mu.Lock()
	t.generation++
	t.mu.Unlock()

	logger.Log(ctx).Info(ctx, msgAccessExpired)
}
