package auth

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// AuthInput is embedded in huma inputs of protected operations. Browsers send
// the session cookie; API clients may send the same token as a bearer token.
type AuthInput struct {
	Token         string `cookie:"auth_token"`
	Authorization string `header:"Authorization"`
}

// Identity is the caller of a protected operation.
type Identity struct {
	UserID   string
	Username string
	IsAdmin  bool
}

func (in AuthInput) token() string {
	if in.Token != "" {
		return in.Token
	}
	if rest, ok := strings.CutPrefix(in.Authorization, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// Authorize resolves the caller from the request credentials.
func (h *AuthHandler) Authorize(ctx context.Context, in AuthInput) (*Identity, error) {
	raw := in.token()
	if raw == "" {
		return nil, huma.Error401Unauthorized("Unauthorized: No token found")
	}

	claims, err := h.ParseToken(raw)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejected token")
		return nil, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}

	return &Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		IsAdmin:  h.cfg.IsAdmin(claims.Subject),
	}, nil
}

// RequireAdmin is Authorize plus a check against the configured admin ids.
func (h *AuthHandler) RequireAdmin(ctx context.Context, in AuthInput) (*Identity, error) {
	id, err := h.Authorize(ctx, in)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin {
		return nil, huma.Error403Forbidden("Access denied: administrator permission required")
	}
	return id, nil
}

type MeInput struct {
	AuthInput
}

type MeResponse struct {
	Body struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *MeInput) (*MeResponse, error) {
	id, err := h.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	res := &MeResponse{}
	res.Body.UserID = id.UserID
	res.Body.Username = id.Username
	res.Body.IsAdmin = id.IsAdmin
	return res, nil
}
