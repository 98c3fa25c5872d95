package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"bountyline/internal/config"
	"bountyline/internal/db"
	"bountyline/internal/domain"
	"bountyline/internal/engine"
	"bountyline/internal/migrate"
	"bountyline/internal/token"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, allowInternalHeader bool) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	codec, err := token.NewCodec(cfg.Auth.TokenSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	handler, err := New(Config{
		Engine:   engine.New(conn),
		App:      cfg,
		Codec:    codec,
		BasePath: "/v1",
		Auth: AuthConfig{
			Codec:                     codec,
			AllowInternalWalletHeader: allowInternalHeader,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func registerAndLoginSponsor(t *testing.T, srv *testServer, wallet string) string {
	t.Helper()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors", map[string]any{
		"wallet_address": wallet,
		"name":           "Acme",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register sponsor: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors/login", map[string]any{
		"wallet_address": wallet,
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login sponsor: %d %s", res.StatusCode, string(data))
	}
	var auth SponsorAuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if auth.Token == "" {
		t.Fatalf("expected token in login response: %s", string(data))
	}
	return auth.Token
}

func registerAndLoginContributor(t *testing.T, srv *testServer, email string) string {
	t.Helper()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/contributors", map[string]any{
		"email":          email,
		"wallet_address": "0xwork",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register contributor: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/contributors/login", map[string]any{
		"email":    email,
		"password": "hunter2",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login contributor: %d %s", res.StatusCode, string(data))
	}
	var auth ContributorAuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	return auth.Token
}

func TestTaskSubmissionReviewFlow(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	sponsorToken := registerAndLoginSponsor(t, srv, "0xabc")
	contribToken := registerAndLoginContributor(t, srv, "alice@example.com")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "Ship feature",
		"reward":     "100",
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.Status != domain.TaskOpen {
		t.Fatalf("expected open task, got %s", task.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/submissions", map[string]any{
		"wallet_address": "0xwork",
		"content":        "here is my work",
	}, bearer(contribToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create submission: %d %s", res.StatusCode, string(data))
	}
	var sub domain.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		t.Fatalf("unmarshal submission: %v", err)
	}
	if sub.Status != domain.SubmissionPending {
		t.Fatalf("expected pending submission, got %s", sub.Status)
	}

	// task now carries the submission id
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+task.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task: %d %s", res.StatusCode, string(data))
	}
	var fetched domain.Task
	_ = json.Unmarshal(data, &fetched)
	if len(fetched.Submissions) != 1 || fetched.Submissions[0] != sub.ID {
		t.Fatalf("submission id not mirrored: %+v", fetched.Submissions)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/submissions/"+sub.ID+"/review", map[string]any{
		"status": "accepted",
		"rating": 5,
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("review: %d %s", res.StatusCode, string(data))
	}
	var reviewed domain.Submission
	_ = json.Unmarshal(data, &reviewed)
	if !reviewed.IsAccepted || reviewed.Status != domain.SubmissionAccepted {
		t.Fatalf("expected accepted submission, got %+v", reviewed)
	}

	// closed tasks refuse further submissions
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID+"/status", map[string]any{
		"status": "completed",
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/submissions", map[string]any{
		"wallet_address": "0xwork",
	}, bearer(contribToken))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for closed task, got %d %s", res.StatusCode, string(data))
	}
}

func TestAuthorizationBoundaries(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	sponsorToken := registerAndLoginSponsor(t, srv, "0xabc")
	contribToken := registerAndLoginContributor(t, srv, "alice@example.com")

	// no credentials
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "nope",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v: %s", err, string(data))
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", string(data))
	}

	// garbage token
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "nope",
	}, bearer("not-a-token"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d %s", res.StatusCode, string(data))
	}

	// contributor role cannot create tasks
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "nope",
	}, bearer(contribToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for contributor, got %d %s", res.StatusCode, string(data))
	}

	// sponsor cannot act on another sponsor's account
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors", map[string]any{
		"wallet_address": "0xdef",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register second sponsor: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xdef",
		"title":      "nope",
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign sponsor id, got %d %s", res.StatusCode, string(data))
	}

	// duplicate registration conflicts
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors", map[string]any{
		"wallet_address": "0xabc",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}

	// bad credentials on login
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors/login", map[string]any{
		"wallet_address": "0xabc",
		"password":       "wrong",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad login, got %d %s", res.StatusCode, string(data))
	}
}

func TestInternalWalletHeader(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	sponsorToken := registerAndLoginSponsor(t, srv, "0xabc")
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "Linked task",
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	// header identity matching the wallet is accepted
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/internal/sponsors/0xabc/tasks/"+task.ID, nil,
		map[string]string{InternalWalletHeader: "0xabc"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("internal link: %d %s", res.StatusCode, string(data))
	}
	var sp domain.Sponsor
	_ = json.Unmarshal(data, &sp)
	if len(sp.TaskIDs) != 1 {
		t.Fatalf("expected single task id after relink, got %v", sp.TaskIDs)
	}

	// mismatched header wallet is rejected
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/internal/sponsors/0xabc/tasks/"+task.ID, nil,
		map[string]string{InternalWalletHeader: "0xother"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched wallet, got %d %s", res.StatusCode, string(data))
	}
}

func TestInternalWalletHeaderDisabledByDefault(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	sponsorToken := registerAndLoginSponsor(t, srv, "0xabc")
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "Linked task",
	}, bearer(sponsorToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/internal/sponsors/0xabc/tasks/"+task.ID, nil,
		map[string]string{InternalWalletHeader: "0xabc"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with header path disabled, got %d %s", res.StatusCode, string(data))
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors", map[string]any{
		"wallet_address": "0xabc",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register sponsor: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sponsors/login", map[string]any{
		"wallet_address": "0xabc",
		"password":       "hunter2",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", res.StatusCode, string(data))
	}
	cookie := res.Header.Get("Set-Cookie")
	if !strings.HasPrefix(cookie, SessionCookie+"=") {
		t.Fatalf("expected %s cookie, got %q", SessionCookie, cookie)
	}
	for _, attr := range []string{"HttpOnly", "SameSite=Lax", "Path=/"} {
		if !strings.Contains(cookie, attr) {
			t.Fatalf("cookie missing %s: %q", attr, cookie)
		}
	}

	// the cookie authenticates on its own
	pair, _, _ := strings.Cut(cookie, ";")
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"sponsor_id": "0xabc",
		"title":      "Via cookie",
	}, map[string]string{"Cookie": pair})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task via cookie: %d %s", res.StatusCode, string(data))
	}
}

func TestContributorProfileOwnership(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	contribToken := registerAndLoginContributor(t, srv, "alice@example.com")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/contributors/alice@example.com", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get contributor: %d %s", res.StatusCode, string(data))
	}

	// contributor may update own profile fields
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/contributors/alice@example.com", map[string]any{
		"bio": "I build things",
	}, bearer(contribToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch contributor: %d %s", res.StatusCode, string(data))
	}
	var c domain.Contributor
	_ = json.Unmarshal(data, &c)
	if c.Bio != "I build things" {
		t.Fatalf("bio not updated: %+v", c)
	}

	// but not someone else's
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/contributors", map[string]any{
		"email":    "bob@example.com",
		"password": "hunter2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register second contributor: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/contributors/bob@example.com", map[string]any{
		"bio": "hijacked",
	}, bearer(contribToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign profile, got %d %s", res.StatusCode, string(data))
	}
}
