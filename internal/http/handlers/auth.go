package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/domain/user"
	"github.com/geocoder89/notehub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (user.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (user.User, error)
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

type AuthHandler struct {
	users        UserStore
	jwt          *auth.Manager
	refreshStore auth.RefreshTokenStore
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, refreshStore auth.RefreshTokenStore) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwt:          jwtManager,
		refreshStore: refreshStore,
	}
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type TokenResponse struct {
	Message string `json:"message,omitempty"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

var errInvalidRefresh = errors.New("invalid refresh token")

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = email
	}

	// bcrypt reads at most 72 bytes; the binding tag counts characters
	if len(req.Password) > security.MaxPasswordBytes {
		RespondFieldErrors(ctx, FieldError{Field: "password", Rule: "max", Param: "72", Message: "must be at most 72 bytes"})
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "hash password failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := storeContext(ctx, 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, username, email, hash)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			// an omitted username was taken from the email, so blame the field the client sent
			field := "username"
			if strings.TrimSpace(req.Username) == "" {
				field = "email"
			}
			RespondFieldErrors(ctx, FieldError{Field: field, Rule: "unique", Message: validationMessage("unique", "")})
		case errors.Is(err, user.ErrEmailTaken):
			RespondFieldErrors(ctx, FieldError{Field: "email", Rule: "unique", Message: validationMessage("unique", "")})
		default:
			slog.ErrorContext(ctx.Request.Context(), "create user failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	pair, err := h.issue(cctx, u)
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "issue tokens failed", "user_id", u.ID, "err", err)

		// registration is all-or-nothing, drop the user we could not hand a session to
		if derr := h.users.Delete(cctx, u.ID); derr != nil {
			slog.ErrorContext(ctx.Request.Context(), "rollback user failed", "user_id", u.ID, "err", derr)
		}

		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusCreated, TokenResponse{
		Message: "User registered successfully",
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByIdentifier(cctx, strings.TrimSpace(req.Identifier()))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		slog.ErrorContext(ctx.Request.Context(), "lookup user failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	if security.NeedsRehash(foundUser.PasswordHash) {
		h.rehash(cctx, foundUser.ID, req.Password)
	}

	pair, err := h.issue(cctx, foundUser)
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "issue tokens failed", "user_id", foundUser.ID, "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, TokenResponse{
		Message: "Login successful",
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. Presenting a revoked token again is rejected.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(req.Refresh)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := storeContext(ctx, 3*time.Second)
	defer cancel()

	var newRaw string

	_, err = h.refreshStore.Rotate(cctx, claims.ID, func(current auth.RefreshTokenRow) (auth.RefreshTokenRow, error) {
		now := time.Now().UTC()

		if !current.Active(now) || current.UserID != userID {
			return auth.RefreshTokenRow{}, errInvalidRefresh
		}

		// the hash check rejects a token substituted under a known jti
		if current.TokenHash != h.jwt.HashRefreshToken(req.Refresh) {
			return auth.RefreshTokenRow{}, errInvalidRefresh
		}

		raw, jti, expiresAt, err := h.jwt.GenerateRefreshToken(userID, claims.Username)
		if err != nil {
			return auth.RefreshTokenRow{}, err
		}
		newRaw = raw

		return auth.RefreshTokenRow{
			ID:        jti,
			UserID:    userID,
			TokenHash: h.jwt.HashRefreshToken(raw),
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		if errors.Is(err, errInvalidRefresh) || errors.Is(err, auth.ErrRefreshTokenNotFound) {
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
			return
		}
		slog.ErrorContext(ctx.Request.Context(), "rotate refresh token failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(userID, claims.Username)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, TokenResponse{
		Access:  accessToken,
		Refresh: newRaw,
	})
}

// Logout revokes the presented refresh token. Unknown or already revoked
// tokens still yield 204.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	var req RefreshRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(req.Refresh)
	if err != nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := storeContext(ctx, 3*time.Second)
	defer cancel()

	if err := h.refreshStore.Revoke(cctx, claims.ID); err != nil {
		slog.WarnContext(ctx.Request.Context(), "revoke refresh token failed", "err", err)
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) issue(ctx context.Context, u user.User) (auth.Pair, error) {
	pair, err := h.jwt.GeneratePair(u.ID, u.Username)
	if err != nil {
		return auth.Pair{}, err
	}

	err = h.refreshStore.Create(ctx, auth.RefreshTokenRow{
		ID:        pair.RefreshJTI,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(pair.Refresh),
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return auth.Pair{}, err
	}

	return pair, nil
}

// rehash is best effort, a failure only means the old hash stays.
func (h *AuthHandler) rehash(ctx context.Context, userID int64, password string) {
	hash, err := security.HashPassword(password)
	if err == nil {
		err = h.users.SetPasswordHash(ctx, userID, hash)
	}
	if err != nil {
		slog.WarnContext(ctx, "password rehash failed", "user_id", userID, "err", err)
	}
}
