package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domaincheck "github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/repository/memory"
	"github.com/NordCoder/Uptimer/internal/repository/records"
	"github.com/NordCoder/Uptimer/internal/services/api/auth"
	"github.com/NordCoder/Uptimer/internal/services/api/check"
	"github.com/NordCoder/Uptimer/internal/services/api/userlock"
	"github.com/NordCoder/Uptimer/internal/services/monitor"
)

type testAPI struct {
	srv    *httptest.Server
	reg    *monitor.Registry
	checks *records.CheckRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zaptest.NewLogger(t)
	g := memory.NewGateway()
	users := records.NewUserRepo(g)
	checks := records.NewCheckRepo(g)
	sessions := records.NewSessionRepo(g, func() time.Time { return time.Now().UTC() })
	reg := monitor.NewRegistry()
	locks := userlock.New()

	checkUC := check.New(checks, users, reg, locks, nil)
	authUC := auth.NewUseCase(users, sessions, checkUC, locks, auth.Config{TokenTTL: time.Hour})

	h := NewRouter(log, Deps{
		Auth:   auth.NewHandler(log, authUC),
		Checks: check.NewHandler(log, checkUC),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, reg: reg, checks: checks}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("token", token)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func (a *testAPI) signUpAndIn(t *testing.T, email string) string {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/v1/users", "", map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "email": email,
		"password": "correct-horse", "tosAgreement": true,
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = a.do(t, http.MethodPost, "/v1/tokens", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var tok auth.TokenView
	require.NoError(t, json.Unmarshal(body, &tok))
	require.NotEmpty(t, tok.ID)
	return tok.ID
}

func newCheckBody(host string) map[string]any {
	return map[string]any{
		"protocol": "https", "hostname": host, "path": "/", "method": "GET",
		"successCodes": []int{200, 201}, "timeoutSeconds": 3,
	}
}

func TestAPI_SignUpValidation(t *testing.T) {
	a := newTestAPI(t)

	code, _ := a.do(t, http.MethodPost, "/v1/users", "", map[string]any{
		"firstName": "A", "lastName": "B", "email": "x@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, code, "tosAgreement required")

	a.signUpAndIn(t, "x@example.com")
	code, _ = a.do(t, http.MethodPost, "/v1/users", "", map[string]any{
		"firstName": "A", "lastName": "B", "email": "X@Example.com ", "password": "correct-horse", "tosAgreement": true,
	})
	assert.Equal(t, http.StatusBadRequest, code, "email taken")

	code, _ = a.do(t, http.MethodPost, "/v1/tokens", "", map[string]string{"email": "x@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newTestAPI(t)

	code, _ := a.do(t, http.MethodGet, "/v1/checks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(t, http.MethodGet, "/v1/checks", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAPI_CheckLifecycle(t *testing.T) {
	a := newTestAPI(t)
	tok := a.signUpAndIn(t, "owner@example.com")

	code, body := a.do(t, http.MethodPost, "/v1/checks", tok, newCheckBody("example.com"))
	require.Equal(t, http.StatusOK, code, string(body))
	var c domaincheck.Check
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, domaincheck.StateUnknown, c.State)

	_, ok := a.reg.Get(c.ID)
	assert.True(t, ok, "created check is registered")

	code, body = a.do(t, http.MethodPut, "/v1/checks/"+c.ID, tok, map[string]any{"path": "/health"})
	require.Equal(t, http.StatusOK, code, string(body))
	got, _ := a.reg.Get(c.ID)
	assert.Equal(t, "/health", got.Path)

	code, _ = a.do(t, http.MethodPut, "/v1/checks/"+c.ID, tok, map[string]any{"timeoutSeconds": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(t, http.MethodGet, "/v1/checks", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []domaincheck.Check
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	code, _ = a.do(t, http.MethodPost, "/v1/checks/"+c.ID+"/reset", tok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodDelete, "/v1/checks/"+c.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	_, ok = a.reg.Get(c.ID)
	assert.False(t, ok)
	code, _ = a.do(t, http.MethodGet, "/v1/checks/"+c.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_CheckQuota(t *testing.T) {
	a := newTestAPI(t)
	tok := a.signUpAndIn(t, "quota@example.com")

	for i := 0; i < 5; i++ {
		code, body := a.do(t, http.MethodPost, "/v1/checks", tok, newCheckBody(fmt.Sprintf("h%d.example.com", i)))
		require.Equal(t, http.StatusOK, code, string(body))
	}
	code, body := a.do(t, http.MethodPost, "/v1/checks", tok, newCheckBody("h6.example.com"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "quota")
	assert.Equal(t, 5, a.reg.Len())
}

func TestAPI_ForeignCheckForbidden(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signUpAndIn(t, "one@example.com")
	other := a.signUpAndIn(t, "two@example.com")

	_, body := a.do(t, http.MethodPost, "/v1/checks", owner, newCheckBody("example.com"))
	var c domaincheck.Check
	require.NoError(t, json.Unmarshal(body, &c))

	for _, m := range []string{http.MethodGet, http.MethodDelete} {
		code, _ := a.do(t, m, "/v1/checks/"+c.ID, other, nil)
		assert.Equal(t, http.StatusForbidden, code, m)
	}
	code, _ := a.do(t, http.MethodPut, "/v1/checks/"+c.ID, other, map[string]any{"path": "/x"})
	assert.Equal(t, http.StatusForbidden, code)
	_, ok := a.reg.Get(c.ID)
	assert.True(t, ok)
}

func TestAPI_DeleteUserCascades(t *testing.T) {
	a := newTestAPI(t)
	tok := a.signUpAndIn(t, "gone@example.com")

	for i := 0; i < 2; i++ {
		code, _ := a.do(t, http.MethodPost, "/v1/checks", tok, newCheckBody(fmt.Sprintf("h%d.example.com", i)))
		require.Equal(t, http.StatusOK, code)
	}
	require.Equal(t, 2, a.reg.Len())

	code, _ := a.do(t, http.MethodDelete, "/v1/users/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, a.reg.Len())

	all, err := a.checks.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)

	code, _ = a.do(t, http.MethodGet, "/v1/users/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAPI_TokenEndpoints(t *testing.T) {
	a := newTestAPI(t)
	tok := a.signUpAndIn(t, "tok@example.com")

	code, body := a.do(t, http.MethodGet, "/v1/tokens/"+tok, "", nil)
	require.Equal(t, http.StatusOK, code)
	var before auth.TokenView
	require.NoError(t, json.Unmarshal(body, &before))

	code, body = a.do(t, http.MethodPut, "/v1/tokens/"+tok, "", nil)
	require.Equal(t, http.StatusOK, code)
	var after auth.TokenView
	require.NoError(t, json.Unmarshal(body, &after))
	assert.False(t, after.ExpiresAt.Before(before.ExpiresAt))

	code, _ = a.do(t, http.MethodDelete, "/v1/tokens/"+tok, "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodGet, "/v1/tokens/"+tok, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(t, http.MethodPut, "/v1/tokens/"+tok, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_UpdateProfile(t *testing.T) {
	a := newTestAPI(t)
	tok := a.signUpAndIn(t, "me@example.com")

	code, body := a.do(t, http.MethodPut, "/v1/users/me", tok, map[string]any{"phone": "+15551234567"})
	require.Equal(t, http.StatusOK, code, string(body))
	var u auth.UserView
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "+15551234567", u.Phone)
	assert.NotContains(t, string(body), "passwordHash")

	code, _ = a.do(t, http.MethodPut, "/v1/users/me", tok, map[string]any{"phone": "555"})
	assert.Equal(t, http.StatusBadRequest, code)
}
