package handler_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	apiHandler "github.com/fastygo/taskmanager/api/handler"
	"github.com/fastygo/taskmanager/internal/infrastructure/monitor"
	"github.com/fastygo/taskmanager/internal/middleware"
	"github.com/fastygo/taskmanager/internal/router"
	"github.com/fastygo/taskmanager/internal/token"
	"github.com/fastygo/taskmanager/pkg/httpcontext"
	"github.com/fastygo/taskmanager/pkg/password"
	"github.com/fastygo/taskmanager/repository/memory"
	authUC "github.com/fastygo/taskmanager/usecase/auth"
	taskUC "github.com/fastygo/taskmanager/usecase/task"
)

const cookieName = "jwt"

type staticStatus struct {
	status monitor.Status
}

func (s staticStatus) GetStatus() monitor.Status {
	return s.status
}

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  json.RawMessage `json:"error"`
	Meta   json.RawMessage `json:"meta"`
}

type testServer struct {
	t       *testing.T
	handler fasthttp.RequestHandler
	tasks   *memory.TaskRepository
}

type response struct {
	status int
	body   envelope
	raw    []byte
	cookie *fasthttp.Cookie
}

func newTestServer(t *testing.T, health monitor.Status) *testServer {
	t.Helper()

	cfg := token.Config{Secret: "handler-secret", Algorithm: "HS256", TTL: time.Hour, Issuer: "taskmanager"}
	issuer, err := token.NewIssuer(cfg)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(cfg)
	require.NoError(t, err)

	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()
	adapter := httpcontext.NewAdapter(time.Second)

	handlers := router.Handlers{
		Auth: apiHandler.NewAuthHandler(
			authUC.New(users, password.NewHasher(bcrypt.MinCost), issuer, nil),
			adapter, nil,
			apiHandler.CookieSettings{Name: cookieName, Path: "/"},
		),
		Task:   apiHandler.NewTaskHandler(taskUC.New(tasks, nil), adapter, nil),
		Health: apiHandler.NewHealthHandler(staticStatus{status: health}, adapter, nil),
	}
	gate := middleware.CookieAuth(middleware.AuthConfig{CookieName: cookieName, Verifier: verifier})
	r := router.New(handlers, gate)

	return &testServer{t: t, handler: middleware.SecurityHeaders(r.Handler), tasks: tasks}
}

func (s *testServer) do(method, path, contentType, body, jwt string) response {
	s.t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if body != "" {
		req.SetBodyString(body)
	}
	if jwt != "" {
		req.Header.SetCookie(cookieName, jwt)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.handler(ctx)

	res := response{
		status: ctx.Response.StatusCode(),
		raw:    append([]byte(nil), ctx.Response.Body()...),
	}
	if len(res.raw) > 0 {
		require.NoError(s.t, json.Unmarshal(res.raw, &res.body), string(res.raw))
	}

	c := &fasthttp.Cookie{}
	c.SetKey(cookieName)
	if ctx.Response.Header.Cookie(c) {
		res.cookie = c
	}
	return res
}

func (s *testServer) json(method, path, body, jwt string) response {
	return s.do(method, path, "application/json", body, jwt)
}

func (s *testServer) register(email, pass string) response {
	body, _ := json.Marshal(map[string]string{"email": email, "password": pass})
	return s.json(http.MethodPost, "/api/v1/auth/register", string(body), "")
}

func (s *testServer) login(email, pass string) response {
	form := url.Values{"username": {email}, "password": {pass}}.Encode()
	return s.do(http.MethodPost, "/api/v1/auth/token", "application/x-www-form-urlencoded", form, "")
}

func (s *testServer) session(email, pass string) string {
	s.t.Helper()
	require.Equal(s.t, http.StatusCreated, s.register(email, pass).status)
	res := s.login(email, pass)
	require.Equal(s.t, http.StatusOK, res.status)
	require.NotNil(s.t, res.cookie)
	return string(res.cookie.Value())
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})

	reg := srv.register("alice@example.com", "pw123")
	require.Equal(t, http.StatusCreated, reg.status)
	assert.NotContains(t, string(reg.raw), "pw123")

	login := srv.login("alice@example.com", "pw123")
	require.Equal(t, http.StatusOK, login.status)
	require.NotNil(t, login.cookie)
	assert.True(t, login.cookie.HTTPOnly())
	assert.Equal(t, fasthttp.CookieSameSiteStrictMode, login.cookie.SameSite())
	assert.Equal(t, "/", string(login.cookie.Path()))
	jwt := string(login.cookie.Value())
	require.NotEmpty(t, jwt)
	assert.NotContains(t, string(login.raw), jwt, "token travels only in the cookie")

	var loginBody struct {
		TokenType string    `json:"token_type"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(login.body.Data, &loginBody))
	assert.Equal(t, "bearer", loginBody.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), loginBody.ExpiresAt, time.Minute)

	created := srv.json(http.MethodPost, "/api/v1/tasks",
		`{"title":"Buy milk","category":"home","priority":"low"}`, jwt)
	require.Equal(t, http.StatusCreated, created.status, string(created.raw))

	var task struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		Title       string `json:"title"`
		Category    string `json:"category"`
		Priority    string `json:"priority"`
		IsCompleted bool   `json:"is_completed"`
	}
	require.NoError(t, json.Unmarshal(created.body.Data, &task))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "low", task.Priority)
	assert.False(t, task.IsCompleted)

	list := srv.json(http.MethodGet, "/api/v1/tasks", "", jwt)
	require.Equal(t, http.StatusOK, list.status)
	var tasks []map[string]interface{}
	require.NoError(t, json.Unmarshal(list.body.Data, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0]["title"])

	patched := srv.json(http.MethodPatch, "/api/v1/tasks/"+task.ID, `{"is_completed":true}`, jwt)
	require.Equal(t, http.StatusOK, patched.status, string(patched.raw))
	assert.Contains(t, string(patched.body.Data), `"is_completed":true`)

	got := srv.json(http.MethodGet, "/api/v1/tasks/"+task.ID, "", jwt)
	require.Equal(t, http.StatusOK, got.status)
	assert.Contains(t, string(got.body.Data), `"is_completed":true`)

	logout := srv.json(http.MethodPost, "/api/v1/auth/logout", "", jwt)
	require.Equal(t, http.StatusOK, logout.status)
	require.NotNil(t, logout.cookie)
	assert.Empty(t, logout.cookie.Value())
	assert.True(t, logout.cookie.Expire().Before(time.Now()))

	anonymous := srv.json(http.MethodGet, "/api/v1/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.status)
	assert.Equal(t, "UNAUTHORIZED", anonymous.body.Code)

	deleted := srv.json(http.MethodDelete, "/api/v1/tasks/"+task.ID, "", jwt)
	assert.Equal(t, http.StatusNoContent, deleted.status)
	assert.Empty(t, deleted.raw)
	assert.Equal(t, 0, srv.tasks.Len())
}

func TestRegister_Conflict(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})

	require.Equal(t, http.StatusCreated, srv.register("alice@example.com", "pw123").status)

	dup := srv.register("alice@example.com", "different")
	assert.Equal(t, http.StatusConflict, dup.status)
	assert.Equal(t, "CONFLICT", dup.body.Code)

	assert.Equal(t, http.StatusOK, srv.login("alice@example.com", "pw123").status)
	assert.Equal(t, http.StatusUnauthorized, srv.login("alice@example.com", "different").status)
}

func TestRegister_Invalid(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})

	bad := srv.register("not-an-email", "pw123")
	assert.Equal(t, http.StatusBadRequest, bad.status)
	assert.Equal(t, "INVALID", bad.body.Code)
	assert.Contains(t, string(bad.body.Meta), "email")

	garbage := srv.json(http.MethodPost, "/api/v1/auth/register", "{", "")
	assert.Equal(t, http.StatusBadRequest, garbage.status)
}

func TestLogin_FailuresLookIdentical(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	require.Equal(t, http.StatusCreated, srv.register("alice@example.com", "pw123").status)

	wrongPassword := srv.login("alice@example.com", "wrong")
	unknownUser := srv.login("nobody@example.com", "pw123")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.status)
	assert.Equal(t, wrongPassword.status, unknownUser.status)
	assert.Equal(t, wrongPassword.raw, unknownUser.raw)
	assert.Nil(t, wrongPassword.cookie)
	assert.Nil(t, unknownUser.cookie)
}

func TestForeignTaskIsIndistinguishableFromMissing(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	alice := srv.session("alice@example.com", "pw123")
	bob := srv.session("bob@example.com", "pw456")

	created := srv.json(http.MethodPost, "/api/v1/tasks",
		`{"title":"Buy milk","category":"home","priority":"low"}`, alice)
	require.Equal(t, http.StatusCreated, created.status)
	var task struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.body.Data, &task))

	missing := "/api/v1/tasks/7f1c2b1e-3a6d-4e0b-8c55-0d7a3e9b2f10"
	foreign := "/api/v1/tasks/" + task.ID
	body := `{"title":"Hijack","category":"home","priority":"high"}`

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			payload := ""
			if method == http.MethodPut || method == http.MethodPatch {
				payload = body
			}
			foreignRes := srv.json(method, foreign, payload, bob)
			missingRes := srv.json(method, missing, payload, bob)

			assert.Equal(t, http.StatusNotFound, foreignRes.status)
			assert.Equal(t, missingRes.status, foreignRes.status)
			assert.Equal(t, missingRes.raw, foreignRes.raw)
		})
	}

	bobList := srv.json(http.MethodGet, "/api/v1/tasks", "", bob)
	require.Equal(t, http.StatusOK, bobList.status)
	assert.JSONEq(t, `[]`, string(bobList.body.Data))

	own := srv.json(http.MethodGet, foreign, "", alice)
	require.Equal(t, http.StatusOK, own.status)
	assert.Contains(t, string(own.body.Data), `"title":"Buy milk"`)
	assert.Contains(t, string(own.body.Data), `"priority":"low"`)
}

func TestTaskValidation(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	jwt := srv.session("alice@example.com", "pw123")

	tests := []struct {
		name string
		body string
	}{
		{"blank title", `{"title":" ","category":"home","priority":"low"}`},
		{"unknown priority", `{"title":"a","category":"home","priority":"urgent"}`},
		{"bad due date", `{"title":"a","category":"home","priority":"low","due_date":"friday"}`},
		{"not json", `title=a`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := srv.json(http.MethodPost, "/api/v1/tasks", tt.body, jwt)
			assert.Equal(t, http.StatusBadRequest, res.status)
			assert.Equal(t, "INVALID", res.body.Code)
		})
	}
	assert.Equal(t, 0, srv.tasks.Len())

	emptyPatch := srv.json(http.MethodPatch, "/api/v1/tasks/7f1c2b1e-3a6d-4e0b-8c55-0d7a3e9b2f10", `{}`, jwt)
	assert.Equal(t, http.StatusBadRequest, emptyPatch.status)

	badFilter := srv.json(http.MethodGet, "/api/v1/tasks?priority=urgent", "", jwt)
	assert.Equal(t, http.StatusBadRequest, badFilter.status)
}

func TestListFilters(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	jwt := srv.session("alice@example.com", "pw123")

	for _, body := range []string{
		`{"title":"a","category":"home","priority":"low"}`,
		`{"title":"b","category":"work","priority":"high","is_completed":true}`,
		`{"title":"c","category":"home","priority":"high"}`,
	} {
		require.Equal(t, http.StatusCreated, srv.json(http.MethodPost, "/api/v1/tasks", body, jwt).status)
	}

	count := func(query string) int {
		res := srv.json(http.MethodGet, "/api/v1/tasks"+query, "", jwt)
		require.Equal(t, http.StatusOK, res.status)
		var tasks []json.RawMessage
		require.NoError(t, json.Unmarshal(res.body.Data, &tasks))
		return len(tasks)
	}

	assert.Equal(t, 3, count(""))
	assert.Equal(t, 2, count("?category=home"))
	assert.Equal(t, 2, count("?priority=high"))
	assert.Equal(t, 1, count("?completed=true"))
	assert.Equal(t, 1, count("?limit=1"))
}

func TestListMetaReportsAppliedPaging(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	jwt := srv.session("alice@example.com", "pw123")

	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 50, 0},
		{"?limit=1000&offset=-5", 100, 0},
		{"?limit=0", 100, 0},
		{"?limit=-1&offset=3", 100, 3},
		{"?limit=abc", 50, 0},
		{"?limit=20&offset=10", 20, 10},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := srv.json(http.MethodGet, "/api/v1/tasks"+tt.query, "", jwt)
			require.Equal(t, http.StatusOK, res.status)

			var meta struct {
				Count  int `json:"count"`
				Limit  int `json:"limit"`
				Offset int `json:"offset"`
			}
			require.NoError(t, json.Unmarshal(res.body.Meta, &meta))
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.offset, meta.Offset)
			assert.Equal(t, 0, meta.Count)
		})
	}
}

func TestMe(t *testing.T) {
	srv := newTestServer(t, monitor.Status{PostgreSQL: true})
	jwt := srv.session("alice@example.com", "pw123")

	res := srv.json(http.MethodGet, "/api/v1/auth/me", "", jwt)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body.Data), `"email":"alice@example.com"`)
	assert.NotContains(t, string(res.raw), "password")

	assert.Equal(t, http.StatusUnauthorized, srv.json(http.MethodGet, "/api/v1/auth/me", "", "").status)
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, monitor.Status{PostgreSQL: true}).json(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, healthy.status)
	assert.Equal(t, "success", healthy.body.Status)

	degraded := newTestServer(t, monitor.Status{}).json(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, degraded.status)
	assert.Equal(t, "DEGRADED", degraded.body.Code)
}
