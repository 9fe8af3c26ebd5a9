// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package api serves the backend HTTP API: account registration and
// credential management for handsets, plus relay stats and Prometheus
// metrics. Successful registrations are pushed into the relay through an
// injected server handle, keeping relay topology in sync with the account
// store.
package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rdtd/rdtd/pkg/auth"
	"github.com/rdtd/rdtd/pkg/relay"
)

// Version is reported by the welcome endpoint; set at build time.
var Version = "unset"

// API is the backend HTTP frontend.
type API struct {
	auth  *auth.Service
	relay *relay.Server
	log   *logrus.Logger
}

// New creates the backend API around an account service and a relay.
func New(authSvc *auth.Service, relaySrv *relay.Server, log *logrus.Logger) *API {
	return &API{auth: authSvc, relay: relaySrv, log: log}
}

// Router builds the backend route table.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/welcome", a.welcome)
	r.Post("/api/register", a.register)
	r.Post("/api/login", a.login)
	r.Post("/api/resetpassword", a.resetPassword)
	r.Post("/api/updatepassword", a.updatePassword)
	r.Get("/api/stats", a.stats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// ListenAndServe serves the backend API on addr.
func (a *API) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "Listen")
	}
	defer listener.Close()

	a.log.WithField("addr", addr).Info("Listening for backend API requests")
	return errors.Wrap(http.Serve(listener, a.Router()), "Serve backend API")
}

type result struct {
	Result  int    `json:"result"`
	Message string `json:"message"`
	User    *user  `json:"user,omitempty"`
}

// user is the account shape returned to clients; no credentials.
type user struct {
	ID      int64  `json:"id"`
	Phone   string `json:"phone"`
	SuperID string `json:"super_id"`
	Status  int    `json:"status"`
}

func (a *API) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithField("error", err).Error("Write API response")
	}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeJSON(w, result{Result: -1, Message: "malformed request body"})
		return false
	}
	return true
}

func (a *API) welcome(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, result{
		Result:  0,
		Message: fmt.Sprintf("Remote device control backend %s", Version),
	})
}

var signupMessages = map[int]string{
	auth.ResultOK:     "Successfully registered",
	auth.SignupExists: "Registered phone number",
	auth.SignupOther:  "Unknown error",
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
		SuperID  string `json:"super_id"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	code := a.auth.Signup(req.Phone, req.Password, req.SuperID)
	a.writeJSON(w, result{Result: code, Message: signupMessages[code]})

	if code == auth.ResultOK {
		a.relay.CheckChannelAndUser(req.Phone, req.SuperID)
	}
}

var loginMessages = map[int]string{
	auth.ResultOK:          "Successfully logged in",
	auth.LoginUnregistered: "Unregistered phone number",
	auth.LoginBadPassword:  "Incorrect password",
	auth.LoginOther:        "Other reason",
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	code, u := a.auth.Login(req.Phone, req.Password)
	resp := result{Result: code, Message: loginMessages[code]}
	if u != nil {
		resp.User = &user{ID: u.ID, Phone: u.Phone, SuperID: u.SuperID, Status: int(u.Status)}
	}
	a.writeJSON(w, resp)
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone       string `json:"phone"`
		NewPassword string `json:"new_password"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	code := a.auth.ResetPassword(req.Phone, req.NewPassword)
	msg := "Password has been changed successfully"
	if code != auth.ResultOK {
		msg = "Operation failed"
	}
	a.writeJSON(w, result{Result: code, Message: msg})
}

var updateMessages = map[int]string{
	auth.ResultOK:          "Password has been changed successfully",
	auth.UpdateBadPassword: "Incorrect current password",
	auth.UpdateOther:       "Other reason",
}

func (a *API) updatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone       string `json:"phone"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	code := a.auth.UpdatePassword(req.Phone, req.OldPassword, req.NewPassword)
	a.writeJSON(w, result{Result: code, Message: updateMessages[code]})
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.relay.Stats())
}
