package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/internal/service"
	"github.com/jovaandres/rest-api-ev/internal/store/memstore"
	"github.com/jovaandres/rest-api-ev/internal/task"
	"github.com/jovaandres/rest-api-ev/internal/token"
	"github.com/jovaandres/rest-api-ev/pkg/middleware"
	"github.com/jovaandres/rest-api-ev/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu   sync.Mutex
	sent []service.Message
}

func (o *outbox) Notify(_ context.Context, m service.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sent = append(o.sent, m)
	return nil
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
	mail   *outbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	deny := token.NewMemoryDenylist()
	t.Cleanup(func() { deny.Close() })

	hasher, err := security.New("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tugas.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"category":"Math","deadline":"2024-01-10","title":"Integrals","description":"Sheet 3"}]`), 0o644))
	tasks, err := task.Open(path)
	require.NoError(t, err)
	tasks.CacheResults(persist.NewMemoryStore(time.Minute), time.Minute)

	mail := &outbox{}
	accounts := account.NewManager(st, token.NewIssuer("test-secret", st, deny), hasher, mail, account.Config{
		Origin: "http://front.test",
	})
	t.Cleanup(accounts.Close)

	d := &internal.Deps{
		Accounts:   accounts,
		Reminders:  st,
		Tasks:      tasks,
		SessionTTL: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testApp{
		t:    t,
		deps: d,
		mail: mail,
		router: NewRouter(ctx, d, RouterConfig{
			CORSOrigins:    []string{"http://front.test"},
			RateLimit:      1000,
			ProbeRateLimit: 1000,
		}),
	}
}

type reply struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (r reply) msg() string {
	if m, ok := r.body["message"].(string); ok {
		return m
	}
	m, _ := r.body["error"].(string)
	return m
}

func (r reply) session() *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == middleware.AuthCookie && c.MaxAge > 0 {
			return c
		}
	}
	return nil
}

func (a *testApp) do(method, path string, body any, cookie *http.Cookie) reply {
	a.t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	r := reply{code: w.Code, cookies: w.Result().Cookies()}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &r.body), w.Body.String())
		assert.NotEmpty(a.t, r.body["requestID"])
	}
	return r
}

// lastToken waits for pending mail and returns the token of the latest
// link of the given kind.
func (a *testApp) lastToken(kind service.MailKind) string {
	a.t.Helper()
	a.deps.Accounts.Close()

	a.mail.mu.Lock()
	defer a.mail.mu.Unlock()

	for i := len(a.mail.sent) - 1; i >= 0; i-- {
		if m := a.mail.sent[i]; m.Kind == kind {
			return m.Link[strings.LastIndex(m.Link, "/")+1:]
		}
	}

	require.FailNow(a.t, "no mail sent", "kind %s", kind)
	return ""
}

var annBody = gin.H{"name": "Ann", "username": "ann", "email": "ann@x.com", "password": "password1"}

func (a *testApp) register() *http.Cookie {
	a.t.Helper()

	r := a.do(http.MethodPost, "/register", annBody, nil)
	require.Equal(a.t, http.StatusCreated, r.code, r.msg())
	require.NotNil(a.t, r.session())
	return r.session()
}

func TestHeartbeat(t *testing.T) {
	a := newTestApp(t)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t)

	r := a.do(http.MethodPost, "/register", annBody, nil)
	assert.Equal(t, http.StatusCreated, r.code)
	assert.Equal(t, "Successfully registered!", r.msg())
	assert.NotContains(t, r.body["user"], "password")
	session := r.session()
	require.NotNil(t, session)

	r = a.do(http.MethodPost, "/register", annBody, nil)
	assert.Equal(t, http.StatusCreated, r.code)
	assert.Equal(t, "The email already in use!", r.msg())
	assert.Nil(t, r.session())

	login := gin.H{"email": "ann@x.com", "password": "password1"}

	r = a.do(http.MethodPost, "/login", login, session)
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "You are already logged in!", r.msg())

	r = a.do(http.MethodPost, "/login", gin.H{"email": "ann@x.com", "password": "wrongpass1"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)
	assert.Equal(t, "Invalid email or password!", r.msg())

	r = a.do(http.MethodPost, "/login", gin.H{"email": "bob@x.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)
	assert.Equal(t, "Invalid email or password!", r.msg())

	r = a.do(http.MethodPost, "/login", login, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Successfully Logged In!", r.msg())
	fresh := r.session()
	require.NotNil(t, fresh)

	r = a.do(http.MethodGet, "/getauth", nil, fresh)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "ann@x.com", r.body["user"].(map[string]any)["email"])

	r = a.do(http.MethodGet, "/logout", nil, fresh)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Successfully logged out!", r.msg())

	r = a.do(http.MethodPost, "/getauth", nil, fresh)
	assert.Equal(t, http.StatusUnauthorized, r.code)
	assert.Equal(t, "User not authenticated", r.msg())

	r = a.do(http.MethodPost, "/logout", nil, nil)
	assert.Equal(t, http.StatusOK, r.code)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := a.do(http.MethodPost, "/register", gin.H{"name": "Ann", "username": "ann", "email": "nope", "password": "short"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)
	assert.Contains(t, r.msg(), "(email)")
	assert.Contains(t, r.msg(), "(password)")

	a.register()
	r = a.do(http.MethodPost, "/register", gin.H{"name": "Ann", "username": "ann", "email": "other@x.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusConflict, r.code)
}

func TestVerifyEndpoints(t *testing.T) {
	a := newTestApp(t)

	r := a.do(http.MethodPost, "/reqverify", gin.H{"email": "ann@x.com"}, nil)
	assert.Equal(t, http.StatusNotFound, r.code)
	assert.Equal(t, "User not found!", r.msg())

	a.register()
	first := a.lastToken(service.MailVerification)

	r = a.do(http.MethodPost, "/reqverify", gin.H{"email": "ann@x.com"}, nil)
	assert.Equal(t, http.StatusCreated, r.code)
	assert.Equal(t, "Email verification link sent!", r.msg())
	second := a.lastToken(service.MailVerification)

	r = a.do(http.MethodGet, "/verify/ann@x.com/"+first, nil, nil)
	assert.Equal(t, http.StatusNotFound, r.code)
	assert.Equal(t, "Invalid token or token is expired", r.msg())

	r = a.do(http.MethodPost, "/verify", gin.H{"email": "bob@x.com", "token": second}, nil)
	assert.Equal(t, http.StatusNotFound, r.code)

	r = a.do(http.MethodGet, "/verify/ann@x.com/"+second, nil, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Email verified", r.msg())

	r = a.do(http.MethodPost, "/reqverify", gin.H{"email": "ann@x.com"}, nil)
	assert.Equal(t, http.StatusForbidden, r.code)
	assert.Equal(t, "Email already verified", r.msg())
}

func TestResetEndpoints(t *testing.T) {
	a := newTestApp(t)
	a.register()

	r := a.do(http.MethodPost, "/reset/bob@x.com", nil, nil)
	assert.Equal(t, http.StatusNotFound, r.code)
	assert.Equal(t, "Email not found", r.msg())

	r = a.do(http.MethodPost, "/reset", gin.H{"email": "ann@x.com"}, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Email reset link sent!", r.msg())
	tok := a.lastToken(service.MailReset)

	r = a.do(http.MethodPut, "/reset", gin.H{"newPass": "password2", "confirmPass": "password3", "email": "ann@x.com", "token": tok}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)
	assert.Contains(t, r.msg(), "(confirmPass)")

	r = a.do(http.MethodPut, "/reset", gin.H{"newPass": "password2", "confirmPass": "password2", "email": "ann@x.com", "token": tok}, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Password updated", r.msg())

	r = a.do(http.MethodPut, "/reset", gin.H{"newPass": "password4", "confirmPass": "password4", "email": "ann@x.com", "token": tok}, nil)
	assert.Equal(t, http.StatusNotFound, r.code)

	r = a.do(http.MethodPost, "/login", gin.H{"email": "ann@x.com", "password": "password1"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)

	r = a.do(http.MethodPost, "/login", gin.H{"email": "ann@x.com", "password": "password2"}, nil)
	assert.Equal(t, http.StatusOK, r.code)
}

func TestReminderEndpoints(t *testing.T) {
	a := newTestApp(t)

	r := a.do(http.MethodGet, "/reminders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, r.code)

	ann := a.register()

	r = a.do(http.MethodPost, "/reminders", gin.H{"title": "Exam", "major": "Math", "time": "2024-01-10 08:00"}, ann)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)
	assert.Contains(t, r.msg(), "Datetime not match")

	r = a.do(http.MethodPost, "/reminders", gin.H{"title": "Exam", "major": "Math", "time": "2024-01-10 08:00:00.000"}, ann)
	require.Equal(t, http.StatusCreated, r.code, r.msg())
	rem := r.body["reminder"].(map[string]any)
	id := rem["id"].(string)
	assert.Equal(t, "2024-01-10 08:00:00.000", rem["time"])

	r = a.do(http.MethodGet, "/reminders", nil, ann)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["reminders"], 1)

	r = a.do(http.MethodPut, "/reminders/"+id, gin.H{"title": "Final exam", "major": "Math", "time": "2024-01-11 08:00:00.000"}, ann)
	assert.Equal(t, http.StatusOK, r.code)

	bob := a.do(http.MethodPost, "/register", gin.H{"name": "Bob", "username": "bob", "email": "bob@x.com", "password": "password1"}, nil).session()
	require.NotNil(t, bob)

	r = a.do(http.MethodGet, "/reminders/"+id, nil, bob)
	assert.Equal(t, http.StatusNotFound, r.code)

	r = a.do(http.MethodDelete, "/reminders/"+id, nil, bob)
	assert.Equal(t, http.StatusNotFound, r.code)

	r = a.do(http.MethodGet, "/reminders/"+id, nil, ann)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "Final exam", r.body["reminder"].(map[string]any)["title"])

	r = a.do(http.MethodDelete, "/reminders/"+id, nil, ann)
	assert.Equal(t, http.StatusOK, r.code)

	r = a.do(http.MethodGet, "/reminders/"+id, nil, ann)
	assert.Equal(t, http.StatusNotFound, r.code)
}

func TestTaskEndpoints(t *testing.T) {
	a := newTestApp(t)

	r := a.do(http.MethodGet, "/tugas", nil, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["tugas"], 1)

	r = a.do(http.MethodGet, "/tugas/Biology", nil, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Empty(t, r.body["tugas"])

	essay := gin.H{"category": "History", "deadline": "2024-02-01", "title": "Essay", "description": "2 pages"}

	r = a.do(http.MethodPost, "/addtugas", essay, nil)
	assert.Equal(t, http.StatusUnauthorized, r.code)

	session := a.register()

	r = a.do(http.MethodPost, "/addtugas", gin.H{"category": "History"}, session)
	assert.Equal(t, http.StatusUnprocessableEntity, r.code)

	r = a.do(http.MethodPost, "/addtugas", essay, session)
	assert.Equal(t, http.StatusCreated, r.code)

	r = a.do(http.MethodGet, "/tugas/History", nil, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Len(t, r.body["tugas"], 1)
}

func TestTaskListSeesAddedTask(t *testing.T) {
	a := newTestApp(t)
	session := a.register()

	first := a.do(http.MethodGet, "/tugas", nil, nil)
	require.Equal(t, http.StatusOK, first.code)
	assert.Len(t, first.body["tugas"], 1)

	math := a.do(http.MethodGet, "/tugas/math", nil, nil)
	assert.Len(t, math.body["tugas"], 1)

	r := a.do(http.MethodPost, "/addtugas", gin.H{"category": "Math", "deadline": "2024-02-01", "title": "Series", "description": "Sheet 4"}, session)
	require.Equal(t, http.StatusCreated, r.code)

	second := a.do(http.MethodGet, "/tugas", nil, nil)
	assert.Len(t, second.body["tugas"], 2)
	assert.NotEqual(t, first.body["requestID"], second.body["requestID"])

	math = a.do(http.MethodGet, "/tugas/MATH", nil, nil)
	assert.Len(t, math.body["tugas"], 2)
}
