package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/civicgrid/civicgrid-be/internal/auth"
	"github.com/civicgrid/civicgrid-be/internal/database"
	"github.com/civicgrid/civicgrid-be/internal/monitoring"
	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/civicgrid/civicgrid-be/internal/session"
	ws "github.com/civicgrid/civicgrid-be/internal/websocket"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

// newTestServer wires the full stack against a temp database and a fake
// inference endpoint, mirroring what main.go does. The hub is returned so
// tests can push frames to websocket subscribers.
func newTestServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate: %v", err)
	}
	if err := database.Seed(db, uuid.New().String(), "Shrinjita", "shrinjitapaul@gmail.com", "password123"); err != nil {
		t.Fatalf("database.Seed: %v", err)
	}

	statsService := services.NewStatsService(db)
	if err := statsService.SeedSampleData(); err != nil {
		t.Fatalf("SeedSampleData: %v", err)
	}

	inference := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]interface{}{
				{"class": "Plastic", "confidence": 0.9},
			},
		})
	}))
	t.Cleanup(inference.Close)

	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	wasteService := services.NewWasteService(db, eventService, inference.URL, "test-key", "model/1", 0.4)
	resolver := services.NewStaticRouteResolver(services.DefaultRoutes())

	sessions := session.NewManager()
	gate := auth.NewGate(sessions, userService)

	hub := ws.NewHub()
	go hub.Run()

	router := NewRouter(hub, sessions, gate, userService, eventService, wasteService, statsService, resolver, "http://localhost:3000")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

// doJSON posts a JSON body and returns the response without closing it.
func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func TestRouter_RegisterLoginLogoutFlow(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	// Register alice.
	resp := doJSON(t, client, "POST", server.URL+"/api/v1/auth/register", map[string]string{
		"username": "alice", "email": "a@x.com",
		"password": "password1", "confirmPassword": "password1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: got %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Same username again, different email: conflict.
	resp = doJSON(t, client, "POST", server.URL+"/api/v1/auth/register", map[string]string{
		"username": "alice", "email": "other@x.com",
		"password": "password1", "confirmPassword": "password1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register: got %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong password: generic 401.
	resp = doJSON(t, client, "POST", server.URL+"/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "wrongpw",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	// Correct login establishes a session cookie.
	resp = doJSON(t, client, "POST", server.URL+"/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "password1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got %d, want 200", resp.StatusCode)
	}
	var loginOut struct {
		Admin bool `json:"admin"`
		User  struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginOut); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if loginOut.User.Username != "alice" || loginOut.Admin {
		t.Errorf("unexpected login response: %+v", loginOut)
	}

	// Session-gated page is reachable now.
	resp, err := client.Get(server.URL + "/api/v1/auth/me")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("me: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// A standard user is not an admin, even while logged in.
	resp, err = client.Get(server.URL + "/api/v1/admin/stats")
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin stats as alice: got %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// Logout clears the session; the gate now rejects.
	resp = doJSON(t, client, "POST", server.URL+"/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/api/v1/auth/me")
	if err != nil {
		t.Fatalf("me after logout: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout: got %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_AdminDashboard(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	resp := doJSON(t, client, "POST", server.URL+"/api/v1/auth/login", map[string]string{
		"username": "Shrinjita", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login: got %d, want 200", resp.StatusCode)
	}
	var loginOut struct {
		Admin bool `json:"admin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginOut); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if !loginOut.Admin {
		t.Error("expected the seeded account to be admin")
	}

	resp, err := client.Get(server.URL + "/api/v1/admin/stats")
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin stats: got %d, want 200", resp.StatusCode)
	}
	var stats struct {
		CategoryTotals []struct {
			Label string  `json:"label"`
			Total float64 `json:"total"`
		} `json:"categoryTotals"`
		DailySeries []interface{} `json:"dailySeries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	resp.Body.Close()
	if len(stats.CategoryTotals) == 0 || len(stats.DailySeries) == 0 {
		t.Errorf("expected seeded dashboard data, got %+v", stats)
	}

	resp, err = client.Get(server.URL + "/api/v1/admin/events")
	if err != nil {
		t.Fatalf("admin events: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin events: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/api/v1/admin/system")
	if err != nil {
		t.Fatalf("admin system: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin system: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_ProtectedPagesRequireLogin(t *testing.T) {
	server, _ := newTestServer(t)
	client := &http.Client{}

	for _, path := range []string{
		"/api/v1/routes/resolve?origin=a&destination=b",
		"/api/v1/admin/stats",
		"/api/v1/auth/me",
	} {
		resp, err := client.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without session: got %d, want 401", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRouter_RouteAndClassify(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	resp := doJSON(t, client, "POST", server.URL+"/api/v1/auth/register", map[string]string{
		"username": "bob", "email": "b@x.com",
		"password": "password1", "confirmPassword": "password1",
	})
	resp.Body.Close()
	resp = doJSON(t, client, "POST", server.URL+"/api/v1/auth/login", map[string]string{
		"username": "bob", "password": "password1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Tabled route.
	resp, err := client.Get(server.URL + "/api/v1/routes/resolve?origin=Chennai+Central&destination=Marina+Beach")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve: got %d, want 200", resp.StatusCode)
	}
	var route struct {
		DistanceKm float64 `json:"distanceKm"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	resp.Body.Close()
	if route.DistanceKm != 4.6 {
		t.Errorf("distance: got %v, want 4.6", route.DistanceKm)
	}

	// Unknown pair (static-only resolver in this harness).
	resp, err = client.Get(server.URL + "/api/v1/routes/resolve?origin=Nowhere&destination=Elsewhere")
	if err != nil {
		t.Fatalf("resolve unknown: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("resolve unknown: got %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	// Classification upload.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "waste.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("fake-image-bytes"))
	writer.Close()

	req, err := http.NewRequest("POST", server.URL+"/api/v1/waste/classify", &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("classify: got %d, want 200", resp.StatusCode)
	}
	var result struct {
		Predictions []struct {
			Class     string `json:"class"`
			Guideline string `json:"guideline"`
		} `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode classify: %v", err)
	}
	resp.Body.Close()
	if len(result.Predictions) != 1 || result.Predictions[0].Class != "Plastic" {
		t.Errorf("unexpected classification: %+v", result)
	}
}

func TestRouter_LiveStatsFeed(t *testing.T) {
	server, hub := newTestServer(t)
	client := newCookieClient(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws/stats"

	// The feed sits behind the admin gate: an anonymous dial is rejected
	// during the handshake.
	_, handshake, err := gws.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the anonymous dial to fail")
	}
	if handshake == nil || handshake.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous dial: got %+v, want 401", handshake)
	}

	resp := doJSON(t, client, "POST", server.URL+"/api/v1/auth/login", map[string]string{
		"username": "Shrinjita", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	dialer := gws.Dialer{Jar: client.Jar}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("admin dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	// The feed is push-only: an inbound action is answered with an error
	// frame. Receiving it also proves the subscription is fully set up,
	// since the write pump only starts after the client is registered.
	if err := conn.WriteJSON(map[string]string{"action": "subscribe"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errFrame struct {
		Action  string `json:"action"`
		Payload string `json:"payload"`
	}
	if err := conn.ReadJSON(&errFrame); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if errFrame.Action != "error" || !strings.Contains(errFrame.Payload, "subscribe") {
		t.Errorf("unexpected error frame: %+v", errFrame)
	}

	hub.BroadcastTo(monitoring.StatsTopic, ws.NewStatsMessage(map[string]string{"status": "ok"}))

	var frame struct {
		Action  string                 `json:"action"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read stats frame: %v", err)
	}
	if frame.Action != "stats_update" || frame.Payload["status"] != "ok" {
		t.Errorf("unexpected stats frame: %+v", frame)
	}
}
