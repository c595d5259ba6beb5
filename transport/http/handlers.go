package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
)

const (
	accessTTL  = 5 * time.Minute
	refreshTTL = 5 * 24 * time.Hour
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	auth      *service.AuthService
	tokenizer ports.Tokenizer
	cfg       service.Config
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(auth *service.AuthService, tokenizer ports.Tokenizer, cfg service.Config) *AuthHandlers {
	return &AuthHandlers{
		auth:      auth,
		tokenizer: tokenizer,
		cfg:       cfg,
	}
}

// Login verifies a signed wallet message and, on success, issues session
// tokens. The three credential fields are read under the configured parameter
// names from either a JSON body or form data.
func (h *AuthHandlers) Login(c *gin.Context) {
	params := h.requestParams(c)

	creds := service.Credentials{
		Address:   params[h.cfg.AddressParam],
		Message:   params[h.cfg.MessageParam],
		Signature: params[h.cfg.SignatureParam],
	}

	result := h.auth.Authenticate(c.Request.Context(), creds)
	switch result.Outcome {
	case core.OutcomeNotApplicable:
		// Lets multi-strategy deployments fall through to other methods.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet credentials not provided"})
		return

	case core.OutcomeFailed:
		c.JSON(http.StatusUnauthorized, gin.H{"error": string(result.Reason)})
		return
	}

	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       result.Identity.Address,
		IssuedAt:      now,
		AccessExpiry:  now.Add(accessTTL),
		RefreshExpiry: now.Add(refreshTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := h.tokenizer.SessionToAccessToken(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}

	refreshToken, err := h.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(accessTTL.Seconds()),
	})
}

// Nonce returns the current nonce for a known address so the client can embed
// it in the message it signs.
func (h *AuthHandlers) Nonce(c *gin.Context) {
	nonce, err := h.auth.Nonce(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	// User address is set by the auth middleware
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

// requestParams collects string fields from a JSON body or form data, so the
// configured parameter names can be looked up regardless of content type.
func (h *AuthHandlers) requestParams(c *gin.Context) map[string]string {
	params := make(map[string]string)

	if c.ContentType() == "application/json" {
		// Non-string fields elsewhere in the body must not discard the
		// string credentials next to them.
		var body map[string]any
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err == nil {
			for k, v := range body {
				if s, ok := v.(string); ok {
					params[k] = s
				}
			}
		}
		return params
	}

	for _, name := range []string{h.cfg.AddressParam, h.cfg.MessageParam, h.cfg.SignatureParam} {
		if v, ok := c.GetPostForm(name); ok {
			params[name] = v
		}
	}
	return params
}
