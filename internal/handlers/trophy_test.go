package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/amongthesloths/trophybot/internal/auth"
	"github.com/amongthesloths/trophybot/internal/config"
	"github.com/amongthesloths/trophybot/internal/database"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	awards []models.Award
	err    error
}

func (n *recordingNotifier) NotifyAward(award models.Award) error {
	n.awards = append(n.awards, award)
	return n.err
}

type testEnv struct {
	api      humatest.TestAPI
	svc      *trophy.Service
	notifier *recordingNotifier
	admin    string
	member   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver:  config.DriverSQLite,
		DatabasePath:    ":memory:",
		JWTSecret:       "test-secret",
		AdminUserIDs:    []string{"1001"},
		LeaderboardSize: 10,
	}
	db, err := database.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	svc := trophy.NewService(db)
	authHandler := auth.NewAuthHandler(cfg, zerolog.Nop())
	n := &recordingNotifier{}

	_, api := humatest.New(t)
	RegisterOperations(api, authHandler, NewTrophyHandler(svc, n, authHandler, cfg.LeaderboardSize, zerolog.Nop()))

	admin, err := authHandler.GenerateToken("1001", "alice")
	require.NoError(t, err)
	member, err := authHandler.GenerateToken("2002", "bob")
	require.NoError(t, err)

	return &testEnv{
		api:      api,
		svc:      svc,
		notifier: n,
		admin:    "Authorization: Bearer " + admin,
		member:   "Cookie: " + auth.TokenCookie + "=" + member,
	}
}

func decode(t *testing.T, body []byte, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, out))
}

func TestCreateTrophy(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Admin", func(t *testing.T) {
		resp := env.api.Post("/trophies", env.admin, map[string]any{
			"name": "Gold", "description": "Top of the class", "emoji": "🥇",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var body TrophyBody
		decode(t, resp.Body.Bytes(), &body)
		assert.NotZero(t, body.ID)
		assert.Equal(t, "Gold", body.Name)
		assert.Equal(t, "1001", body.CreatedBy)
	})

	t.Run("NotAdmin", func(t *testing.T) {
		resp := env.api.Post("/trophies", env.member, map[string]any{"name": "Silver"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("Anonymous", func(t *testing.T) {
		resp := env.api.Post("/trophies", map[string]any{"name": "Silver"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("DescriptionTooLong", func(t *testing.T) {
		resp := env.api.Post("/trophies", env.admin, map[string]any{
			"name": "Verbose", "description": strings.Repeat("x", models.MaxDescriptionLength+1),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("BlankName", func(t *testing.T) {
		resp := env.api.Post("/trophies", env.admin, map[string]any{"name": "   "})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestListTrophies_Paginates(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 12; i++ {
		_, err := env.svc.CreateTrophy(t.Context(), fmt.Sprintf("T%02d", i), "", "", "1001")
		require.NoError(t, err)
	}

	var first, second, past ListTrophiesResponse
	decode(t, env.api.Get("/trophies").Body.Bytes(), &first.Body)
	require.Len(t, first.Body.Items, 10)
	assert.Equal(t, "T01", first.Body.Items[0].Name)
	assert.Equal(t, 1, first.Body.Page)
	assert.Equal(t, 2, first.Body.TotalPages)
	assert.Equal(t, 12, first.Body.TotalItems)

	decode(t, env.api.Get("/trophies?page=2").Body.Bytes(), &second.Body)
	require.Len(t, second.Body.Items, 2)
	assert.Equal(t, "T11", second.Body.Items[0].Name)

	decode(t, env.api.Get("/trophies?page=9").Body.Bytes(), &past.Body)
	assert.Empty(t, past.Body.Items)
	assert.Equal(t, 2, past.Body.TotalPages)
}

func TestAwardFlow(t *testing.T) {
	env := newTestEnv(t)
	gold, err := env.svc.CreateTrophy(t.Context(), "Gold", "", "🥇", "1001")
	require.NoError(t, err)
	awards := fmt.Sprintf("/trophies/%d/awards", gold.ID)

	resp := env.api.Post(awards, env.admin, map[string]any{"user_id": "42"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var award AwardBody
	decode(t, resp.Body.Bytes(), &award)
	assert.Equal(t, "42", award.UserID)
	require.NotNil(t, award.AwardedBy)
	assert.Equal(t, "1001", *award.AwardedBy)
	require.NotNil(t, award.Trophy)
	assert.Equal(t, "Gold", award.Trophy.Name)

	require.Len(t, env.notifier.awards, 1)
	assert.Equal(t, "42", env.notifier.awards[0].UserID)

	t.Run("Duplicate", func(t *testing.T) {
		resp := env.api.Post(awards, env.admin, map[string]any{"user_id": "42"})
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Len(t, env.notifier.awards, 1)
	})

	t.Run("UnknownTrophy", func(t *testing.T) {
		resp := env.api.Post("/trophies/999/awards", env.admin, map[string]any{"user_id": "42"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("DetailListsHolders", func(t *testing.T) {
		resp := env.api.Get(fmt.Sprintf("/trophies/%d", gold.ID))
		require.Equal(t, http.StatusOK, resp.Code)

		var body GetTrophyResponse
		decode(t, resp.Body.Bytes(), &body.Body)
		assert.Equal(t, "Gold", body.Body.Name)
		require.Len(t, body.Body.Holders, 1)
		assert.Equal(t, "42", body.Body.Holders[0].UserID)
	})

	t.Run("UserTrophies", func(t *testing.T) {
		var body UserTrophiesResponse
		decode(t, env.api.Get("/users/42/trophies").Body.Bytes(), &body.Body)
		require.Len(t, body.Body.Awards, 1)
		assert.Equal(t, gold.ID, body.Body.Awards[0].TrophyID)
	})

	t.Run("Leaderboard", func(t *testing.T) {
		var body LeaderboardResponse
		decode(t, env.api.Get("/leaderboard").Body.Bytes(), &body.Body)
		require.Len(t, body.Body.Entries, 1)
		assert.Equal(t, trophy.LeaderboardEntry{Rank: 1, UserID: "42", Count: 1}, body.Body.Entries[0])
	})

	t.Run("Remove", func(t *testing.T) {
		path := fmt.Sprintf("/trophies/%d/awards/42", gold.ID)
		assert.Equal(t, http.StatusForbidden, env.api.Delete(path, env.member).Code)
		assert.Equal(t, http.StatusNoContent, env.api.Delete(path, env.admin).Code)
		assert.Equal(t, http.StatusNotFound, env.api.Delete(path, env.admin).Code)
	})
}

func TestAwardTrophy_NotifierFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("discord down")
	gold, err := env.svc.CreateTrophy(t.Context(), "Gold", "", "", "1001")
	require.NoError(t, err)

	resp := env.api.Post(fmt.Sprintf("/trophies/%d/awards", gold.ID), env.admin, map[string]any{"user_id": "42"})
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestGetTrophy_NotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.api.Get("/trophies/7").Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	resp := env.api.Get("/me", env.member)
	require.Equal(t, http.StatusOK, resp.Code)

	var body auth.MeResponse
	decode(t, resp.Body.Bytes(), &body.Body)
	assert.Equal(t, "2002", body.Body.UserID)
	assert.False(t, body.Body.IsAdmin)
}
