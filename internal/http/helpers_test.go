package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"wleci/internal/config"
	"wleci/internal/http/handlers"
	"wleci/internal/repos"
)

type testEnv struct {
	app  *fiber.App
	deps *handlers.Deps
	cfg  config.Config
	db   *gorm.DB
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDSN = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.LoginRateMax = 100
	for _, fn := range tweak {
		fn(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	deps, err := handlers.NewDeps(db, cfg)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	return &testEnv{app: handlers.NewApp(cfg, deps), deps: deps, cfg: cfg, db: db}
}

// do sends body as JSON when it is not nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) postForm(t *testing.T, path, form string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func extractCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (e *testEnv) register(t *testing.T, name, email, password string) uint {
	t.Helper()
	resp := e.do(t, "POST", "/api/auth/register", map[string]string{"name": name, "email": email, "password": password})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	user := decode(t, resp)["user"].(map[string]any)
	return uint(user["id"].(float64))
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	resp := e.do(t, "POST", "/api/auth/login", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	c := extractCookie(resp, e.cfg.CookieName)
	if c == nil || c.Value == "" {
		t.Fatalf("login %s: no session cookie", email)
	}
	return c
}

// admin bootstraps an administrator and returns its id and session cookie.
func (e *testEnv) admin(t *testing.T) (uint, *http.Cookie) {
	t.Helper()
	u, err := e.deps.UserService.EnsureAdmin(context.Background(), "root@wleci.test", "rootpass")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return u.ID, e.login(t, "root@wleci.test", "rootpass")
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID uint           `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
