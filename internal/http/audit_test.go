package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlukasik/filmlog/internal/database/users"
	"github.com/mlukasik/filmlog/internal/entities"
)

func seedAuditEvent(t *testing.T, env *testEnv, userID uint, action string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, env.auditRepo.LogEvent(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventImport,
		Action:      action,
		Description: "Accepted watch-history import",
		Status:      entities.AuditStatusSuccess,
		CreatedAt:   createdAt,
	}))
}

type auditListResponse struct {
	Events []entities.AuditEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

func getAuditEvents(t *testing.T, env *testEnv, path string) auditListResponse {
	t.Helper()
	rec := doRequest(env, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp auditListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuditController_ListEvents(t *testing.T) {
	t.Run("OwnEventsMostRecentFirst", func(t *testing.T) {
		env := setupTestEnv(t)
		other, err := env.usersRepo.CreateUser("other", "other@example.com")
		require.NoError(t, err)

		now := time.Now()
		seedAuditEvent(t, env, users.DefaultUserID, "letterboxd_import", now.Add(-2*time.Hour))
		seedAuditEvent(t, env, users.DefaultUserID, "imdb_import", now.Add(-time.Hour))
		seedAuditEvent(t, env, other.ID, "letterboxd_import", now)

		resp := getAuditEvents(t, env, "/api/audit")
		require.Len(t, resp.Events, 2, "events must stay scoped to the caller")
		assert.EqualValues(t, 2, resp.Total)
		assert.Equal(t, "imdb_import", resp.Events[0].Action)
		assert.Equal(t, "letterboxd_import", resp.Events[1].Action)
	})

	t.Run("Pagination", func(t *testing.T) {
		env := setupTestEnv(t)

		now := time.Now()
		seedAuditEvent(t, env, users.DefaultUserID, "letterboxd_import", now.Add(-2*time.Hour))
		seedAuditEvent(t, env, users.DefaultUserID, "imdb_import", now.Add(-time.Hour))

		resp := getAuditEvents(t, env, "/api/audit?limit=1&offset=1")
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "letterboxd_import", resp.Events[0].Action)
		assert.EqualValues(t, 2, resp.Total, "total counts all of the caller's events")
		assert.Equal(t, 1, resp.Limit)
		assert.Equal(t, 1, resp.Offset)
	})

	t.Run("OutOfRangeParamsFallBack", func(t *testing.T) {
		env := setupTestEnv(t)
		seedAuditEvent(t, env, users.DefaultUserID, "letterboxd_import", time.Now())

		resp := getAuditEvents(t, env, "/api/audit?limit=0&offset=-5")
		assert.Equal(t, 25, resp.Limit)
		assert.Equal(t, 0, resp.Offset)
		assert.Len(t, resp.Events, 1)
	})
}
