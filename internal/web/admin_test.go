package web

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/store"
)

// ============================================================================
// Admin API Tests
// ============================================================================

func TestAdmin_SetUserRole(t *testing.T) {
	ts := setupServer(t)

	w := ts.do(http.MethodPost, "/api/admin/permissions/user", adminID, gin.H{"userId": guestID, "role": "member"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	role, err := ts.roles.RoleOf(context.Background(), guestID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/party/api/list", guestID, nil).Code)

	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/user", adminID, gin.H{"userId": adminID, "role": "guest"}),
		http.StatusForbidden, apperrors.ErrSelfRoleChange.Msg)
	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/user", adminID, gin.H{"userId": guestID, "role": "owner"}),
		http.StatusBadRequest, "field 'Role' must be one of guest, member, admin")
	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/user", adminID, gin.H{"userId": "abc", "role": "member"}),
		http.StatusBadRequest, "field 'UserID' must be a numeric id")
	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/user", memberID, gin.H{"userId": guestID, "role": "admin"}),
		http.StatusForbidden, "")
}

func TestAdmin_PermissionOverview(t *testing.T) {
	ts := setupServer(t)
	require.NoError(t, ts.stats.TouchIdentity(context.Background(), memberID, "kim", ""))

	w := ts.do(http.MethodGet, "/api/admin/permissions", adminID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	pages := body["pagePermissions"].(map[string]any)
	assert.Equal(t, "admin", pages["/dashboard"])
	assert.Equal(t, "member", pages["/party"])

	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "kim", users[0].(map[string]any)["username"])
	assert.Equal(t, "member", users[0].(map[string]any)["role"])

	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["members"])
}

func TestAdmin_SetPagePermissionValidation(t *testing.T) {
	ts := setupServer(t)

	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/page", adminID, gin.H{"path": "party", "role": "guest"}),
		http.StatusBadRequest, "")
	assertError(t, ts.do(http.MethodPost, "/api/admin/permissions/page", adminID, gin.H{"path": "/party"}),
		http.StatusBadRequest, "field 'Role' is required")
}

func TestAdmin_RecordMatch(t *testing.T) {
	ts := setupServer(t)
	path := "/api/admin/users/" + memberID + "/matches"

	for _, m := range []gin.H{
		{"won": true, "kills": 3},
		{"won": true, "kills": 4},
		{"won": true, "kills": 2},
		{"won": false, "kills": 1, "partyId": "1760000000000"},
	} {
		w := ts.do(http.MethodPost, path, adminID, m)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := ts.do(http.MethodGet, "/api/users/"+memberID+"/stats", memberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]any)
	assert.Equal(t, float64(360), stats["points"])
	assert.Equal(t, float64(75), stats["winRate"])
	assert.Equal(t, 2.5, stats["avgKills"])

	assertError(t, ts.do(http.MethodPost, path, adminID, gin.H{"won": true, "kills": -1}), http.StatusBadRequest, "")
	assertError(t, ts.do(http.MethodPost, path, memberID, gin.H{"won": true, "kills": 1}), http.StatusForbidden, "")
}

func TestUserStats_SelfOrAdmin(t *testing.T) {
	ts := setupServer(t)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/users/"+memberID+"/stats", memberID, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/users/"+memberID+"/stats", adminID, nil).Code)
	assertError(t, ts.do(http.MethodGet, "/api/users/"+memberID+"/stats", otherID, nil), http.StatusForbidden, "")
}

func TestMe(t *testing.T) {
	ts := setupServer(t)

	w := ts.do(http.MethodGet, "/api/me", memberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "member", body["role"])
	assert.Equal(t, memberID, body["user"].(map[string]any)["id"])
	assert.Equal(t, float64(0), body["stats"].(map[string]any)["points"])
}

func TestStoreStats(t *testing.T) {
	ts := setupServer(t)
	createParty(t, ts, memberID, raidBody())

	w := ts.do(http.MethodGet, "/api/stats", memberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "redis", data["backend"])
	assert.Equal(t, float64(1), data["parties"])
	roles := body["roles"].(map[string]any)
	assert.Equal(t, float64(2), roles["total"])
}

func TestBackup(t *testing.T) {
	ts := setupServer(t)
	assertError(t, ts.do(http.MethodPost, "/api/admin/backup", adminID, nil), http.StatusBadRequest, errBackupUnsupported.Msg)

	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	fs := newTestServer(t, backend, testConfig())
	createParty(t, fs, memberID, raidBody())

	w := fs.do(http.MethodPost, "/api/admin/backup", adminID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dir := decode(t, w)["dir"].(string)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	// web_permissions and the party record.
	assert.Len(t, entries, 2)
}

func TestRanking(t *testing.T) {
	ts := setupServer(t)
	for _, userID := range []string{memberID, otherID} {
		w := ts.do(http.MethodPost, "/api/admin/users/"+userID+"/matches", adminID, gin.H{"won": userID == otherID, "kills": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := ts.do(http.MethodGet, "/api/ranking", memberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranking := decode(t, w)["ranking"].([]any)
	require.Len(t, ranking, 2)
	assert.Equal(t, otherID, ranking[0].(map[string]any)["userId"])
	assert.Equal(t, float64(1), ranking[0].(map[string]any)["rank"])

	w = ts.do(http.MethodGet, "/api/ranking?limit=1", memberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["ranking"].([]any), 1)

	assertError(t, ts.do(http.MethodGet, "/api/ranking?limit=0", memberID, nil), http.StatusBadRequest, "")
	assertError(t, ts.do(http.MethodGet, "/api/ranking", "", nil), http.StatusUnauthorized, "")
}
