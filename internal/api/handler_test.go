package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirbridge/internal/bridge"
	internaldb "dirbridge/internal/db"
	"dirbridge/internal/db/repository"
	"dirbridge/internal/domain"
	"dirbridge/internal/service"
)

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	token  string
	client *http.Client
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	groups := repository.NewGroupRepo(writeDB, readDB)
	usvc := service.NewUserService(repository.NewUserRepo(writeDB, readDB), groups)
	gsvc := service.NewGroupService(groups)
	auth := service.NewAuthService(usvc, "test-secret", time.Hour)
	ctrl := bridge.NewController(log, usvc, gsvc, domain.BridgeConfig{
		BaseDN: "dc=example,dc=com",
		Mode:   domain.ModeOpenLDAP,
		Port:   10389,
	})

	h := NewHandler(log, usvc, gsvc, auth, ctrl)
	srv := httptest.NewServer(h.Router(RouterConfig{
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)

	a := &testAPI{t: t, srv: srv, client: srv.Client()}

	// Bootstrap an admin account and a token.
	res := a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"username":     "admin",
		"display_name": "Admin",
		"email":        "admin@example.com",
		"password":     "admin-pass-1",
	})
	require.Equal(t, 0, res.Code, res.Message)

	res = a.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": "admin",
		"password": "admin-pass-1",
	})
	require.Equal(t, 0, res.Code, res.Message)
	a.token = res.Data.(map[string]any)["token"].(string)
	return a
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`

	status int
}

func (a *testAPI) do(method, path string, body any) envelope {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	env.status = resp.StatusCode
	return env
}

func (a *testAPI) createUser(username string) string {
	a.t.Helper()
	res := a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"username":     username,
		"display_name": "Test " + username,
		"email":        username + "@example.com",
		"password":     "password-1",
	})
	require.Equal(a.t, 0, res.Code, res.Message)
	return res.Data.(map[string]any)["id"].(string)
}

func (a *testAPI) createGroup(name string, parentID string) string {
	a.t.Helper()
	body := map[string]any{"name": name}
	if parentID != "" {
		body["parent_id"] = parentID
	}
	res := a.do(http.MethodPost, "/api/v1/groups", body)
	require.Equal(a.t, 0, res.Code, res.Message)
	return res.Data.(map[string]any)["id"].(string)
}

func TestLogin(t *testing.T) {
	a := setupAPI(t)

	res := a.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, -1, res.Code)

	res = a.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, 0, res.Code)
}

func TestMalformedIDsRejected(t *testing.T) {
	a := setupAPI(t)

	// A path id that is not a UUID is a bad request, not a missing row.
	res := a.do(http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, -1, res.Code)

	res = a.do(http.MethodDelete, "/api/v1/groups/123", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	gid := a.createGroup("Ops", "")
	res = a.do(http.MethodDelete, "/api/v1/groups/"+gid+"/members/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestAuthRequired(t *testing.T) {
	a := setupAPI(t)
	a.token = ""

	res := a.do(http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestUserLifecycle(t *testing.T) {
	a := setupAPI(t)
	id := a.createUser("alice")

	// Duplicate username conflicts.
	res := a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"username":     "alice",
		"display_name": "Another Alice",
		"email":        "alice2@example.com",
		"password":     "password-1",
	})
	assert.Equal(t, http.StatusConflict, res.status)

	// Malformed email is rejected up front.
	res = a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"username":     "bob",
		"display_name": "Bob",
		"email":        "not-an-email",
		"password":     "password-1",
	})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = a.do(http.MethodPut, "/api/v1/users/"+id, map[string]any{
		"display_name": "Alice L.",
	})
	require.Equal(t, 0, res.Code, res.Message)
	assert.Equal(t, "Alice L.", res.Data.(map[string]any)["display_name"])

	res = a.do(http.MethodPut, "/api/v1/users/"+id+"/status", map[string]any{"status": "disabled"})
	require.Equal(t, 0, res.Code, res.Message)

	res = a.do(http.MethodGet, "/api/v1/users/"+id, nil)
	assert.Equal(t, "disabled", res.Data.(map[string]any)["status"])

	res = a.do(http.MethodDelete, "/api/v1/users/"+id, nil)
	require.Equal(t, 0, res.Code)

	res = a.do(http.MethodGet, "/api/v1/users/"+id, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestUserListPagination(t *testing.T) {
	a := setupAPI(t)
	for _, name := range []string{"alice", "aline", "bob"} {
		a.createUser(name)
	}

	res := a.do(http.MethodGet, "/api/v1/users?search=ali&page=1&page_size=1", nil)
	require.Equal(t, 0, res.Code, res.Message)
	data := res.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["items"], 1)
}

func TestChangePassword(t *testing.T) {
	a := setupAPI(t)
	id := a.createUser("carol")

	res := a.do(http.MethodPut, "/api/v1/users/"+id+"/password", map[string]any{
		"old_password": "wrong",
		"new_password": "fresh-pass-1",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = a.do(http.MethodPut, "/api/v1/users/"+id+"/password", map[string]any{
		"old_password": "password-1",
		"new_password": "fresh-pass-1",
	})
	require.Equal(t, 0, res.Code, res.Message)

	res = a.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": "carol",
		"password": "fresh-pass-1",
	})
	assert.Equal(t, 0, res.Code)
}

func TestGroupLifecycle(t *testing.T) {
	a := setupAPI(t)

	eng := a.createGroup("Engineering", "")
	backend := a.createGroup("Backend", eng)
	alice := a.createUser("alice")

	res := a.do(http.MethodPost, "/api/v1/groups/"+backend+"/members", map[string]any{
		"user_ids": []string{alice},
	})
	require.Equal(t, 0, res.Code, res.Message)

	res = a.do(http.MethodGet, "/api/v1/users/"+alice+"/groups", nil)
	require.Equal(t, 0, res.Code)
	groups := res.Data.([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "Backend", groups[0].(map[string]any)["name"])

	// Unknown member aborts the whole batch.
	res = a.do(http.MethodPost, "/api/v1/groups/"+backend+"/members", map[string]any{
		"user_ids": []string{alice, "no-such-user"},
	})
	assert.Equal(t, http.StatusNotFound, res.status)

	res = a.do(http.MethodGet, "/api/v1/groups/"+backend+"/members", nil)
	require.Equal(t, 0, res.Code)
	assert.Len(t, res.Data.([]any), 1)

	res = a.do(http.MethodDelete, "/api/v1/groups/"+backend+"/members/"+alice, nil)
	require.Equal(t, 0, res.Code)

	res = a.do(http.MethodGet, "/api/v1/groups/"+backend+"/members", nil)
	assert.Empty(t, res.Data)
}

func TestGroupTreeAndReparent(t *testing.T) {
	a := setupAPI(t)

	eng := a.createGroup("Engineering", "")
	backend := a.createGroup("Backend", eng)
	api := a.createGroup("API", backend)

	res := a.do(http.MethodGet, "/api/v1/groups?tree=1", nil)
	require.Equal(t, 0, res.Code)
	roots := res.Data.([]any)
	require.Len(t, roots, 1)
	root := roots[0].(map[string]any)
	assert.Equal(t, "Engineering", root["name"])
	require.Len(t, root["children"], 1)

	res = a.do(http.MethodGet, "/api/v1/groups/"+eng+"/descendants", nil)
	require.Equal(t, 0, res.Code)
	assert.Len(t, res.Data.([]any), 2)

	// Reparenting under a descendant is refused.
	res = a.do(http.MethodPut, "/api/v1/groups/"+eng, map[string]any{
		"parent_id":  api,
		"set_parent": true,
	})
	assert.Equal(t, http.StatusBadRequest, res.status)

	// Legitimate reparent.
	res = a.do(http.MethodPut, "/api/v1/groups/"+api, map[string]any{
		"parent_id":  eng,
		"set_parent": true,
	})
	require.Equal(t, 0, res.Code, res.Message)
	assert.Equal(t, eng, res.Data.(map[string]any)["parent_id"])
}

func TestLDAPConfigEndpoints(t *testing.T) {
	a := setupAPI(t)

	res := a.do(http.MethodGet, "/api/v1/ldap/config", nil)
	require.Equal(t, 0, res.Code)
	cfg := res.Data.(map[string]any)
	assert.Equal(t, "dc=example,dc=com", cfg["base_dn"])
	assert.Equal(t, float64(10389), cfg["port"])

	res = a.do(http.MethodPut, "/api/v1/ldap/config", map[string]any{
		"base_dn": "dc=corp,dc=local",
		"mode":    "activedirectory",
		"port":    10636,
	})
	require.Equal(t, 0, res.Code, res.Message)

	res = a.do(http.MethodGet, "/api/v1/ldap/config", nil)
	assert.Equal(t, "dc=corp,dc=local", res.Data.(map[string]any)["base_dn"])

	// Invalid configs never apply.
	for _, body := range []map[string]any{
		{"base_dn": "dc=x", "mode": "openldap", "port": 0},
		{"base_dn": "dc=x", "mode": "novell", "port": 389},
		{"base_dn": "nodn", "mode": "openldap", "port": 389},
	} {
		res = a.do(http.MethodPut, "/api/v1/ldap/config", body)
		assert.Equal(t, http.StatusBadRequest, res.status, fmt.Sprintf("%v", body))
	}

	res = a.do(http.MethodGet, "/api/v1/ldap/status", nil)
	require.Equal(t, 0, res.Code)
	status := res.Data.(map[string]any)
	assert.Equal(t, false, status["running"])
	assert.Equal(t, float64(0), status["connections"])
}
