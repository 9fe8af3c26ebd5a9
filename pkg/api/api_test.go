package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rdtd/rdtd/pkg/auth"
	"github.com/rdtd/rdtd/pkg/relay"
)

func testAPI(t *testing.T) (*API, *relay.Server) {
	t.Helper()
	log := logrus.New()
	log.Out = io.Discard

	authSvc := auth.NewService(auth.OpenMemStore(), log)
	relaySrv, err := relay.NewServer(log, authSvc)
	if err != nil {
		t.Fatalf("NewServer: %s", err)
	}
	return New(authSvc, relaySrv, log), relaySrv
}

func post(t *testing.T, handler http.Handler, path string, body interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %s", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST %s returned %d", path, rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal response: %s", err)
	}
	return resp
}

func TestRegisterCreatesRelayTopology(t *testing.T) {
	a, relaySrv := testAPI(t)
	router := a.Router()

	resp := post(t, router, "/api/register", map[string]string{
		"phone":    "+200",
		"password": "hunter2",
		"super_id": "adminY",
	})
	if resp["result"].(float64) != 0 {
		t.Fatalf("register result = %v", resp["result"])
	}

	ch := relaySrv.Channel("adminY")
	if ch == nil {
		t.Fatal("registration did not create relay channel")
	}
	if ch.FindDevice("+200") == nil {
		t.Fatal("registration did not create device endpoint")
	}

	// Duplicate registration fails and does not duplicate topology.
	resp = post(t, router, "/api/register", map[string]string{
		"phone":    "+200",
		"password": "other",
		"super_id": "adminY",
	})
	if resp["result"].(float64) != float64(auth.SignupExists) {
		t.Errorf("duplicate register result = %v", resp["result"])
	}
	if ch.DeviceCount() != 1 {
		t.Errorf("DeviceCount = %d after duplicate registration", ch.DeviceCount())
	}
}

func TestLoginEndpoint(t *testing.T) {
	a, _ := testAPI(t)
	router := a.Router()

	post(t, router, "/api/register", map[string]string{
		"phone": "+100", "password": "hunter2", "super_id": "adminX",
	})

	resp := post(t, router, "/api/login", map[string]string{
		"phone": "+100", "password": "hunter2",
	})
	if resp["result"].(float64) != 0 {
		t.Fatalf("login result = %v", resp["result"])
	}
	u := resp["user"].(map[string]interface{})
	if u["super_id"] != "adminX" {
		t.Errorf("login user = %v", u)
	}
	if _, leaked := u["password_hash"]; leaked {
		t.Error("login response leaks the password hash")
	}

	resp = post(t, router, "/api/login", map[string]string{
		"phone": "+100", "password": "wrong",
	})
	if resp["result"].(float64) != float64(auth.LoginBadPassword) {
		t.Errorf("bad-password login result = %v", resp["result"])
	}
}

func TestPasswordEndpoints(t *testing.T) {
	a, _ := testAPI(t)
	router := a.Router()

	post(t, router, "/api/register", map[string]string{
		"phone": "+100", "password": "old", "super_id": "adminX",
	})

	resp := post(t, router, "/api/updatepassword", map[string]string{
		"phone": "+100", "old_password": "wrong", "new_password": "new",
	})
	if resp["result"].(float64) != float64(auth.UpdateBadPassword) {
		t.Errorf("updatepassword result = %v", resp["result"])
	}

	resp = post(t, router, "/api/resetpassword", map[string]string{
		"phone": "+100", "new_password": "new",
	})
	if resp["result"].(float64) != 0 {
		t.Errorf("resetpassword result = %v", resp["result"])
	}

	resp = post(t, router, "/api/login", map[string]string{
		"phone": "+100", "password": "new",
	})
	if resp["result"].(float64) != 0 {
		t.Errorf("login after reset result = %v", resp["result"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	a, _ := testAPI(t)
	router := a.Router()

	post(t, router, "/api/register", map[string]string{
		"phone": "+100", "password": "pwd", "super_id": "adminX",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/stats returned %d", rec.Code)
	}

	var stats relay.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Unmarshal stats: %s", err)
	}
	if stats.NumChannels != 1 || stats.NumDevices != 1 {
		t.Errorf("stats = %+v; wanted 1 channel, 1 device", stats)
	}
}

func TestMalformedBody(t *testing.T) {
	a, _ := testAPI(t)
	router := a.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	if resp["result"].(float64) != -1 {
		t.Errorf("malformed body result = %v; wanted -1", resp["result"])
	}
}
