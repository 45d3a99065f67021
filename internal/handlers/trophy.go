package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/amongthesloths/trophybot/internal/auth"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/amongthesloths/trophybot/internal/notifier"
	"github.com/amongthesloths/trophybot/internal/pagination"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// TrophyService is the part of trophy.Service the HTTP API uses.
type TrophyService interface {
	CreateTrophy(ctx context.Context, name, description, emoji, createdBy string) (*models.Trophy, error)
	GetTrophyByID(ctx context.Context, id uint) (*models.Trophy, error)
	ListAllTrophies(ctx context.Context) ([]models.Trophy, error)
	AwardTrophy(ctx context.Context, userID string, trophyID uint, awardedBy string) (*models.Award, error)
	RemoveTrophy(ctx context.Context, userID string, trophyID uint) error
	GetUserTrophies(ctx context.Context, userID string) ([]models.Award, error)
	GetUsersWithTrophy(ctx context.Context, trophyID uint) ([]models.Award, error)
	GetLeaderboard(ctx context.Context, limit int) ([]trophy.LeaderboardEntry, error)
}

type TrophyHandler struct {
	svc             TrophyService
	notifier        notifier.Notifier
	authHandler     *auth.AuthHandler
	leaderboardSize int
	logger          zerolog.Logger
}

// NewTrophyHandler wires the API to the service. notifier may be nil when no
// announcement channel is configured.
func NewTrophyHandler(svc TrophyService, n notifier.Notifier, authHandler *auth.AuthHandler, leaderboardSize int, lg zerolog.Logger) *TrophyHandler {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &TrophyHandler{
		svc:             svc,
		notifier:        n,
		authHandler:     authHandler,
		leaderboardSize: leaderboardSize,
		logger:          lg.With().Str("component", "http").Logger(),
	}
}

type TrophyBody struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

type AwardBody struct {
	UserID    string      `json:"user_id"`
	TrophyID  uint        `json:"trophy_id"`
	AwardedAt time.Time   `json:"awarded_at"`
	AwardedBy *string     `json:"awarded_by,omitempty"`
	Trophy    *TrophyBody `json:"trophy,omitempty"`
}

func trophyBody(t models.Trophy) TrophyBody {
	return TrophyBody{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Emoji:       t.Emoji,
		CreatedAt:   t.CreatedAt,
		CreatedBy:   t.CreatedBy,
	}
}

func awardBody(a models.Award) AwardBody {
	out := AwardBody{
		UserID:    a.UserID,
		TrophyID:  a.TrophyID,
		AwardedAt: a.AwardedAt,
		AwardedBy: a.AwardedBy,
	}
	if a.Trophy != nil {
		t := trophyBody(*a.Trophy)
		out.Trophy = &t
	}
	return out
}

func awardBodies(awards []models.Award) []AwardBody {
	out := make([]AwardBody, 0, len(awards))
	for _, a := range awards {
		out = append(out, awardBody(a))
	}
	return out
}

// serviceError maps trophy errors onto HTTP problems.
func (h *TrophyHandler) serviceError(err error) error {
	msg := err.Error()
	var te *trophy.Error
	if errors.As(err, &te) {
		msg = te.Message
	}

	switch {
	case errors.Is(err, trophy.ErrValidation):
		return huma.Error400BadRequest(msg)
	case errors.Is(err, trophy.ErrNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, trophy.ErrDuplicateAward):
		return huma.Error409Conflict(msg)
	default:
		h.logger.Error().Err(err).Msg("trophy storage failure")
		return huma.Error503ServiceUnavailable("Trophy storage is unavailable, try again later")
	}
}

type ListTrophiesInput struct {
	Page int `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
}

type ListTrophiesResponse struct {
	Body struct {
		Items      []TrophyBody `json:"items"`
		Page       int          `json:"page"`
		PageSize   int          `json:"page_size"`
		TotalPages int          `json:"total_pages"`
		TotalItems int          `json:"total_items"`
	}
}

func (h *TrophyHandler) HandleListTrophies(ctx context.Context, input *ListTrophiesInput) (*ListTrophiesResponse, error) {
	trophies, err := h.svc.ListAllTrophies(ctx)
	if err != nil {
		return nil, h.serviceError(err)
	}

	page := pagination.New(trophies, input.Page, pagination.DefaultPageSize)

	res := &ListTrophiesResponse{}
	res.Body.Items = make([]TrophyBody, 0, len(page.Items))
	for _, t := range page.Items {
		res.Body.Items = append(res.Body.Items, trophyBody(t))
	}
	res.Body.Page = page.Page
	res.Body.PageSize = page.PageSize
	res.Body.TotalPages = page.TotalPages
	res.Body.TotalItems = page.TotalItems
	return res, nil
}

type TrophyIDInput struct {
	ID uint `path:"id" minimum:"1"`
}

type GetTrophyResponse struct {
	Body struct {
		TrophyBody
		Holders []AwardBody `json:"holders"`
	}
}

func (h *TrophyHandler) HandleGetTrophy(ctx context.Context, input *TrophyIDInput) (*GetTrophyResponse, error) {
	t, err := h.svc.GetTrophyByID(ctx, input.ID)
	if err != nil {
		return nil, h.serviceError(err)
	}
	holders, err := h.svc.GetUsersWithTrophy(ctx, input.ID)
	if err != nil {
		return nil, h.serviceError(err)
	}

	res := &GetTrophyResponse{}
	res.Body.TrophyBody = trophyBody(*t)
	res.Body.Holders = awardBodies(holders)
	return res, nil
}

type UserTrophiesInput struct {
	UserID string `path:"userId" minLength:"1" maxLength:"32"`
}

type UserTrophiesResponse struct {
	Body struct {
		UserID string      `json:"user_id"`
		Awards []AwardBody `json:"awards"`
	}
}

func (h *TrophyHandler) HandleUserTrophies(ctx context.Context, input *UserTrophiesInput) (*UserTrophiesResponse, error) {
	awards, err := h.svc.GetUserTrophies(ctx, input.UserID)
	if err != nil {
		return nil, h.serviceError(err)
	}

	res := &UserTrophiesResponse{}
	res.Body.UserID = input.UserID
	res.Body.Awards = awardBodies(awards)
	return res, nil
}

type LeaderboardInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Number of entries, defaults to the configured leaderboard size"`
}

type LeaderboardResponse struct {
	Body struct {
		Entries []trophy.LeaderboardEntry `json:"entries"`
	}
}

func (h *TrophyHandler) HandleLeaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardResponse, error) {
	limit := input.Limit
	if limit == 0 {
		limit = h.leaderboardSize
	}

	entries, err := h.svc.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, h.serviceError(err)
	}

	res := &LeaderboardResponse{}
	res.Body.Entries = entries
	return res, nil
}

type CreateTrophyRequest struct {
	auth.AuthInput
	Body struct {
		Name        string `json:"name" doc:"Display name of the trophy" minLength:"1" maxLength:"100"`
		Description string `json:"description,omitempty" doc:"Free-form description" maxLength:"1000"`
		Emoji       string `json:"emoji,omitempty" doc:"Emoji shown next to the name" maxLength:"64"`
	}
}

type CreateTrophyResponse struct {
	Body TrophyBody
}

func (h *TrophyHandler) HandleCreateTrophy(ctx context.Context, input *CreateTrophyRequest) (*CreateTrophyResponse, error) {
	caller, err := h.authHandler.RequireAdmin(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	t, err := h.svc.CreateTrophy(ctx, input.Body.Name, input.Body.Description, input.Body.Emoji, caller.UserID)
	if err != nil {
		return nil, h.serviceError(err)
	}

	h.logger.Info().Uint("trophy_id", t.ID).Str("by", caller.UserID).Msg("trophy created")
	return &CreateTrophyResponse{Body: trophyBody(*t)}, nil
}

type AwardTrophyRequest struct {
	auth.AuthInput
	ID   uint `path:"id" minimum:"1"`
	Body struct {
		UserID string `json:"user_id" doc:"Discord id of the recipient" minLength:"1" maxLength:"32"`
	}
}

type AwardTrophyResponse struct {
	Body AwardBody
}

func (h *TrophyHandler) HandleAwardTrophy(ctx context.Context, input *AwardTrophyRequest) (*AwardTrophyResponse, error) {
	caller, err := h.authHandler.RequireAdmin(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	award, err := h.svc.AwardTrophy(ctx, input.Body.UserID, input.ID, caller.UserID)
	if err != nil {
		return nil, h.serviceError(err)
	}

	// The award is committed; a failed announcement is not the caller's problem.
	if h.notifier != nil {
		if err := h.notifier.NotifyAward(*award); err != nil {
			h.logger.Warn().Err(err).Str("user_id", award.UserID).Uint("trophy_id", award.TrophyID).Msg("award announcement failed")
		}
	}

	return &AwardTrophyResponse{Body: awardBody(*award)}, nil
}

type RemoveAwardRequest struct {
	auth.AuthInput
	ID     uint   `path:"id" minimum:"1"`
	UserID string `path:"userId" minLength:"1" maxLength:"32"`
}

func (h *TrophyHandler) HandleRemoveAward(ctx context.Context, input *RemoveAwardRequest) (*struct{}, error) {
	if _, err := h.authHandler.RequireAdmin(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	if err := h.svc.RemoveTrophy(ctx, input.UserID, input.ID); err != nil {
		return nil, h.serviceError(err)
	}
	return nil, nil
}
