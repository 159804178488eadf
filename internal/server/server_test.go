package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/accounts/internal/config"
	"github.com/congo-pay/accounts/internal/identity"
	"github.com/congo-pay/accounts/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:          "accounts-test",
		AppEnv:           "test",
		StoreDriver:      config.StoreMemory,
		JWTSecret:        "test-secret",
		JWTIssuer:        "accounts-test",
		AccessTokenTTL:   time.Hour,
		AdminIdentifiers: []string{"boss@x.com"},
		BcryptCost:       bcrypt.MinCost,
		IdempotencyTTL:   time.Minute,
	}
}

func newTestServer(t *testing.T, cache *redis.Client) *Server {
	t.Helper()
	srv, err := New(testConfig(), identity.NewMemoryRepository(), cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

type result struct {
	status int
	header http.Header
	body   []byte
}

func (r result) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.body, v); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r result) message(t *testing.T) string {
	t.Helper()
	var body map[string]any
	r.decode(t, &body)
	msg, _ := body["message"].(string)
	return msg
}

func do(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return result{status: resp.StatusCode, header: resp.Header, body: raw}
}

func register(t *testing.T, srv *Server, name, pin, mobile, email, role string) result {
	t.Helper()
	return do(t, srv, http.MethodPost, "/api/register", map[string]string{
		"name": name, "pin": pin, "mobile": mobile, "email": email, "role": role,
	}, nil)
}

func login(t *testing.T, srv *Server, identifier, pin string) result {
	t.Helper()
	return do(t, srv, http.MethodPost, "/api/login", map[string]string{
		"emailOrMobile": identifier, "pin": pin,
	}, nil)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func listUsers(t *testing.T, srv *Server, query string) []map[string]any {
	t.Helper()
	res := do(t, srv, http.MethodGet, "/api/users"+query, nil, nil)
	if res.status != http.StatusOK {
		t.Fatalf("list users: status %d body %s", res.status, res.body)
	}
	var users []map[string]any
	res.decode(t, &users)
	return users
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	res := register(t, srv, "A", "1234", "555", "a@x.com", "user")
	if res.status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", res.status, res.body)
	}
	if msg := res.message(t); msg != "User registered successfully" {
		t.Fatalf("unexpected register message %q", msg)
	}

	res = login(t, srv, "a@x.com", "1234")
	if res.status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", res.status, res.body)
	}
	var tok struct {
		Token string `json:"token"`
	}
	res.decode(t, &tok)
	if strings.Count(tok.Token, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", tok.Token)
	}

	if res = login(t, srv, "555", "1234"); res.status != http.StatusOK {
		t.Fatalf("login by mobile: expected 200, got %d", res.status)
	}
	if res = login(t, srv, "A@X.COM", "1234"); res.status != http.StatusOK {
		t.Fatalf("login with uppercase email: expected 200, got %d", res.status)
	}

	res = login(t, srv, "a@x.com", "0000")
	if res.status != http.StatusUnauthorized {
		t.Fatalf("wrong pin: expected 401, got %d", res.status)
	}
	if msg := res.message(t); msg != "Invalid PIN. Please try again." {
		t.Fatalf("unexpected wrong-pin message %q", msg)
	}

	res = login(t, srv, "nobody@x.com", "1234")
	if res.status != http.StatusNotFound {
		t.Fatalf("unknown identifier: expected 404, got %d", res.status)
	}

	if res = login(t, srv, "a@x.com", ""); res.status != http.StatusBadRequest {
		t.Fatalf("missing pin: expected 400, got %d", res.status)
	}
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	srv := newTestServer(t, nil)

	if res := register(t, srv, "A", "1234", "555", "a@x.com", "user"); res.status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", res.status)
	}

	cases := []struct {
		name   string
		mobile string
		email  string
		role   string
		pin    string
	}{
		{"same email", "556", "a@x.com", "user", "1234"},
		{"same email different case", "557", "A@X.com", "user", "1234"},
		{"same mobile", "555", "b@x.com", "agent", "1234"},
		{"unknown role", "558", "c@x.com", "superuser", "1234"},
		{"missing pin", "559", "d@x.com", "user", ""},
		{"oversized pin", "560", "e@x.com", "user", strings.Repeat("9", 73)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := register(t, srv, "B", tc.pin, tc.mobile, tc.email, tc.role)
			if res.status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", res.status, res.body)
			}
		})
	}

	if users := listUsers(t, srv, ""); len(users) != 1 {
		t.Fatalf("expected exactly one stored user, got %d", len(users))
	}
}

func TestUserLookupAndStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "Alice", "1234", "555", "alice@x.com", "")
	register(t, srv, "Bob", "4321", "777", "bob@x.com", "agent")

	users := listUsers(t, srv, "")
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		for _, forbidden := range []string{"pin", "pinHash", "PINHash"} {
			if _, ok := u[forbidden]; ok {
				t.Fatalf("user payload leaks %q: %v", forbidden, u)
			}
		}
		if u["status"] != "pending" {
			t.Fatalf("expected pending status, got %v", u["status"])
		}
		if u["balance"] != float64(0) {
			t.Fatalf("expected zero balance, got %v", u["balance"])
		}
	}
	if users[0]["role"] != "user" || users[1]["role"] != "agent" {
		t.Fatalf("unexpected roles: %v %v", users[0]["role"], users[1]["role"])
	}

	found := do(t, srv, http.MethodGet, "/api/user?search=BOB", nil, nil)
	var matches []map[string]any
	found.decode(t, &matches)
	if len(matches) != 1 || matches[0]["name"] != "Bob" {
		t.Fatalf("search: unexpected result %v", matches)
	}
	if agents := listUsers(t, srv, "?role=agent"); len(agents) != 1 {
		t.Fatalf("role filter: expected 1, got %d", len(agents))
	}

	id := users[0]["id"].(string)
	res := do(t, srv, http.MethodGet, "/api/user/"+id, nil, nil)
	if res.status != http.StatusOK {
		t.Fatalf("get user: expected 200, got %d", res.status)
	}
	if res = do(t, srv, http.MethodGet, "/api/user/does-not-exist", nil, nil); res.status != http.StatusNotFound {
		t.Fatalf("get missing user: expected 404, got %d", res.status)
	}

	res = do(t, srv, http.MethodPut, "/api/user/"+id+"/status", map[string]string{"status": "active"}, nil)
	if res.status != http.StatusOK {
		t.Fatalf("update status: expected 200, got %d (%s)", res.status, res.body)
	}
	if msg := res.message(t); msg != "User status updated successfully" {
		t.Fatalf("unexpected status message %q", msg)
	}
	var updated map[string]any
	do(t, srv, http.MethodGet, "/api/user/"+id, nil, nil).decode(t, &updated)
	if updated["status"] != "active" {
		t.Fatalf("expected active status, got %v", updated["status"])
	}

	if res = do(t, srv, http.MethodPut, "/api/user/"+id+"/status", map[string]string{"status": "frozen"}, nil); res.status != http.StatusBadRequest {
		t.Fatalf("invalid status: expected 400, got %d", res.status)
	}
	if res = do(t, srv, http.MethodPut, "/api/user/missing/status", map[string]string{"status": "active"}, nil); res.status != http.StatusNotFound {
		t.Fatalf("missing user status: expected 404, got %d", res.status)
	}
}

func TestAdminBalanceAndMe(t *testing.T) {
	srv := newTestServer(t, nil)
	register(t, srv, "Boss", "9999", "100", "boss@x.com", "user")
	register(t, srv, "Carol", "1234", "200", "carol@x.com", "user")

	var adminTok, userTok struct {
		Token string `json:"token"`
	}
	login(t, srv, "boss@x.com", "9999").decode(t, &adminTok)
	login(t, srv, "200", "1234").decode(t, &userTok)

	var me map[string]any
	res := do(t, srv, http.MethodGet, "/api/me", nil, bearer(userTok.Token))
	if res.status != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", res.status)
	}
	res.decode(t, &me)
	if me["email"] != "carol@x.com" {
		t.Fatalf("me returned %v", me)
	}
	if res = do(t, srv, http.MethodGet, "/api/me", nil, nil); res.status != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", res.status)
	}

	path := "/api/user/" + me["id"].(string) + "/balance"
	if res = do(t, srv, http.MethodPut, path, map[string]int64{"balance": 500}, nil); res.status != http.StatusUnauthorized {
		t.Fatalf("balance without token: expected 401, got %d", res.status)
	}
	if res = do(t, srv, http.MethodPut, path, map[string]int64{"balance": 500}, bearer(userTok.Token)); res.status != http.StatusForbidden {
		t.Fatalf("balance as user: expected 403, got %d", res.status)
	}
	if res = do(t, srv, http.MethodPut, path, map[string]int64{"balance": -1}, bearer(adminTok.Token)); res.status != http.StatusBadRequest {
		t.Fatalf("negative balance: expected 400, got %d", res.status)
	}
	if res = do(t, srv, http.MethodPut, path, map[string]int64{"balance": 500}, bearer(adminTok.Token)); res.status != http.StatusOK {
		t.Fatalf("balance as admin: expected 200, got %d (%s)", res.status, res.body)
	}

	do(t, srv, http.MethodGet, "/api/me", nil, bearer(userTok.Token)).decode(t, &me)
	if me["balance"] != float64(500) {
		t.Fatalf("expected balance 500, got %v", me["balance"])
	}
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	res := do(t, srv, http.MethodGet, "/", nil, nil)
	if res.status != http.StatusOK || string(res.body) != "Server running" {
		t.Fatalf("root: got %d %q", res.status, res.body)
	}

	res = do(t, srv, http.MethodGet, "/healthz", nil, nil)
	if res.status != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", res.status)
	}
	var body struct {
		Status map[string]string `json:"status"`
	}
	res.decode(t, &body)
	if body.Status["store"] != "ok" || body.Status["redis"] != "disabled" {
		t.Fatalf("unexpected health payload %s", res.body)
	}
}

func TestRegisterIdempotencyReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	srv := newTestServer(t, cache)
	payload := map[string]string{"name": "A", "pin": "1234", "mobile": "555", "email": "a@x.com"}
	headers := map[string]string{"Idempotency-Key": "reg-1"}

	first := do(t, srv, http.MethodPost, "/api/register", payload, headers)
	if first.status != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", first.status)
	}
	second := do(t, srv, http.MethodPost, "/api/register", payload, headers)
	if second.status != http.StatusCreated {
		t.Fatalf("replayed register: expected 201, got %d (%s)", second.status, second.body)
	}
	if second.header.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header, got %v", second.header)
	}

	third := do(t, srv, http.MethodPost, "/api/register", payload, nil)
	if third.status != http.StatusBadRequest {
		t.Fatalf("register without key: expected 400 conflict, got %d", third.status)
	}

	res := do(t, srv, http.MethodGet, "/healthz", nil, nil)
	var body struct {
		Status map[string]string `json:"status"`
	}
	res.decode(t, &body)
	if body.Status["redis"] != "ok" {
		t.Fatalf("expected redis ok, got %s", res.body)
	}
}

func newIdempotentServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })
	return newTestServer(t, cache)
}

func TestLoginIgnoresIdempotencyKey(t *testing.T) {
	srv := newIdempotentServer(t)
	register(t, srv, "A", "1234", "555", "a@x.com", "user")
	key := map[string]string{"Idempotency-Key": "k1"}

	ok := do(t, srv, http.MethodPost, "/api/login", map[string]string{"emailOrMobile": "a@x.com", "pin": "1234"}, key)
	if ok.status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", ok.status)
	}

	wrong := do(t, srv, http.MethodPost, "/api/login", map[string]string{"emailOrMobile": "a@x.com", "pin": "0000"}, key)
	if wrong.status != http.StatusUnauthorized {
		t.Fatalf("wrong pin with reused key: expected 401, got %d (%s)", wrong.status, wrong.body)
	}
	ghost := do(t, srv, http.MethodPost, "/api/login", map[string]string{"emailOrMobile": "ghost@x.com", "pin": "1234"}, key)
	if ghost.status != http.StatusNotFound {
		t.Fatalf("unknown identifier with reused key: expected 404, got %d (%s)", ghost.status, ghost.body)
	}
	if strings.Contains(string(wrong.body), "token") || strings.Contains(string(ghost.body), "token") {
		t.Fatal("failed login leaked a token")
	}
}

func TestBalanceIgnoresIdempotencyKey(t *testing.T) {
	srv := newIdempotentServer(t)
	register(t, srv, "Boss", "9999", "100", "boss@x.com", "user")
	register(t, srv, "Carol", "1234", "200", "carol@x.com", "user")

	var adminTok struct {
		Token string `json:"token"`
	}
	login(t, srv, "boss@x.com", "9999").decode(t, &adminTok)
	users := listUsers(t, srv, "?search=carol")
	path := "/api/user/" + users[0]["id"].(string) + "/balance"

	adminHeaders := bearer(adminTok.Token)
	adminHeaders["Idempotency-Key"] = "bal-1"
	if res := do(t, srv, http.MethodPut, path, map[string]int64{"balance": 500}, adminHeaders); res.status != http.StatusOK {
		t.Fatalf("balance as admin: expected 200, got %d", res.status)
	}

	anon := do(t, srv, http.MethodPut, path, map[string]int64{"balance": 500}, map[string]string{"Idempotency-Key": "bal-1"})
	if anon.status != http.StatusUnauthorized {
		t.Fatalf("anonymous balance with reused key: expected 401, got %d (%s)", anon.status, anon.body)
	}
	if anon.header.Get("Idempotent-Replayed") != "" {
		t.Fatal("anonymous request received a replayed admin response")
	}
}

func TestRegisterKeyReusedWithDifferentBody(t *testing.T) {
	srv := newIdempotentServer(t)
	headers := map[string]string{"Idempotency-Key": "reg-1"}

	first := do(t, srv, http.MethodPost, "/api/register", map[string]string{
		"name": "A", "pin": "1234", "mobile": "555", "email": "a@x.com",
	}, headers)
	if first.status != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", first.status)
	}

	other := do(t, srv, http.MethodPost, "/api/register", map[string]string{
		"name": "B", "pin": "1234", "mobile": "777", "email": "b@x.com",
	}, headers)
	if other.status != http.StatusUnprocessableEntity {
		t.Fatalf("reused key, new body: expected 422, got %d (%s)", other.status, other.body)
	}
	if users := listUsers(t, srv, ""); len(users) != 1 {
		t.Fatalf("expected only the first account, got %d", len(users))
	}
}
