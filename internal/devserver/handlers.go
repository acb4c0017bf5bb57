package devserver

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"revornix/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerRegister = "devserver handler: register"
	LogHandlerLogin    = "devserver handler: login"
	LogHandlerRefresh  = "devserver handler: refresh tokens" // #nosec G101 - not a credential
	LogHandlerLogout   = "devserver handler: logout"
	LogInjectedFailure = "refresh failure injected"

	ErrorInvalidRequest  = "invalid request"
	ErrorRequiredFields  = "email and password are required"
	ErrorRefreshRequired = "refresh_token is required"
	ErrorRefreshRejected = "invalid refresh token"
	ErrorUnavailable     = "refresh temporarily unavailable"
	ErrorUserNotFound    = "user not found"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type failRefreshRequest struct {
	Count int `json:"count"`
}

// Document запись, которую возвращает поиск.
type Document struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

var documents = []Document{
	{ID: 1, Title: "Getting started with Revornix", Category: "guide"},
	{ID: 2, Title: "Weekly digest of RSS sources", Category: "rss"},
	{ID: 3, Title: "Token refresh explained", Category: "guide"},
	{ID: 4, Title: "Notes on concurrent clients", Category: "note"},
}

func (s *Server) register(c fiber.Ctx) error {
	ctx := requestContext(c)
	log := logger.Log(ctx)
	log.Debug(ctx, LogHandlerRegister)

	var req registerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrorInvalidRequest)
	}
	if req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, ErrorRequiredFields)
	}

	user, err := s.users.Register(ctx, req.Email, req.Username, req.Password)
	switch {
	case errors.Is(err, ErrUserExists):
		return respondError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidPassword):
		return respondError(c, fiber.StatusUnprocessableEntity, err.Error())
	case err != nil:
		log.Error(ctx, ErrorInternal, zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, ErrorInternal)
	}

	pair, err := s.tokens.Issue(ctx, Principal{UserID: user.ID, Username: user.Username})
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, ErrorInternal)
	}
	return c.Status(fiber.StatusCreated).JSON(pair)
}

func (s *Server) login(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerLogin)

	var req loginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrorInvalidRequest)
	}
	if req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, ErrorRequiredFields)
	}

	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, ErrInvalidCredentials.Error())
	}

	pair, err := s.tokens.Issue(ctx, Principal{UserID: user.ID, Username: user.Username})
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, ErrorInternal)
	}
	return c.JSON(pair)
}

func (s *Server) refresh(c fiber.Ctx) error {
	ctx := requestContext(c)
	log := logger.Log(ctx)
	log.Debug(ctx, LogHandlerRefresh)

	s.refreshCalls.Add(1)
	if s.consumeInjectedFailure() {
		log.Info(ctx, LogInjectedFailure)
		return respondError(c, fiber.StatusServiceUnavailable, ErrorUnavailable)
	}

	var req refreshRequest
	if err := c.Bind().JSON(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrorInvalidRequest)
	}
	if req.RefreshToken == "" {
		return respondError(c, fiber.StatusBadRequest, ErrorRefreshRequired)
	}

	pair, err := s.tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return respondError(c, fiber.StatusUnauthorized, ErrorRefreshRejected)
		}
		return respondError(c, fiber.StatusInternalServerError, ErrorInternal)
	}
	return c.JSON(pair)
}

func (s *Server) logout(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerLogout)

	var req refreshRequest
	if err := c.Bind().JSON(&req); err == nil && req.RefreshToken != "" {
		s.tokens.Revoke(req.RefreshToken)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) mine(c fiber.Ctx) error {
	principal, ok := principalFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrorInvalidToken)
	}

	user, ok := s.users.Get(principal.UserID)
	if !ok {
		return respondError(c, fiber.StatusNotFound, ErrorUserNotFound)
	}
	return c.JSON(user)
}

func (s *Server) searchDocuments(c fiber.Ctx) error {
	keyword := strings.ToLower(strings.TrimSpace(c.Query("keyword")))

	found := make([]Document, 0, len(documents))
	for _, doc := range documents {
		if keyword == "" || strings.Contains(strings.ToLower(doc.Title), keyword) {
			found = append(found, doc)
		}
	}
	return c.JSON(fiber.Map{"total": len(found), "elements": found})
}

func (s *Server) expireAccess(c fiber.Ctx) error {
	s.tokens.ExpireAccessTokens(requestContext(c))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) failRefresh(c fiber.Ctx) error {
	var req failRefreshRequest
	if err := c.Bind().JSON(&req); err != nil || req.Count < 0 {
		return respondError(c, fiber.StatusBadRequest, ErrorInvalidRequest)
	}
	s.FailNextRefreshes(req.Count)
	return c.SendStatus(fiber.StatusNoContent)
}
