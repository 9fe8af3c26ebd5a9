// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package auth

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rdtd/rdtd/pkg/relay"
)

// Result codes returned to API clients. The zero value always means
// success; nonzero meanings depend on the operation and are kept stable
// for existing handset apps.
const (
	ResultOK = 0

	SignupExists = 1
	SignupOther  = 2

	LoginUnregistered = 1
	LoginBadPassword  = 2
	LoginOther        = 3

	UpdateBadPassword = 1
	UpdateOther       = 2
)

// Service implements account operations on a Store.
type Service struct {
	store Store
	log   *logrus.Logger
}

// NewService creates an account service.
func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

// Signup creates an account. Codes: 0 ok, 1 phone already registered,
// 2 other failure.
func (s *Service) Signup(phone, password, superID string) int {
	if phone == "" || password == "" || superID == "" {
		return SignupOther
	}
	existing, err := s.store.Get(phone)
	if err != nil {
		s.log.WithField("error", err).Error("Signup lookup failed")
		return SignupOther
	}
	if existing != nil {
		return SignupExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return SignupOther
	}
	u := &User{
		Phone:        phone,
		SuperID:      superID,
		PasswordHash: hash,
		Status:       StatusNormal,
	}
	if err := s.store.Put(u); err != nil {
		s.log.WithField("error", err).Error("Signup store failed")
		return SignupOther
	}
	s.log.WithFields(logrus.Fields{
		"phone":    phone,
		"super_id": superID,
	}).Info("Account created")
	return ResultOK
}

// Login checks credentials. Codes: 0 ok, 1 unregistered phone,
// 2 incorrect password, 3 other (blocked or deleted account).
// On success the account is returned for the caller's response.
func (s *Service) Login(phone, password string) (int, *User) {
	u, err := s.store.Get(phone)
	if err != nil {
		return LoginOther, nil
	}
	if u == nil {
		return LoginUnregistered, nil
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return LoginBadPassword, nil
	}
	if u.Status != StatusNormal {
		return LoginOther, nil
	}
	return ResultOK, u
}

// ResetPassword unconditionally replaces an account's password.
// Codes: 0 ok, 1 failure.
func (s *Service) ResetPassword(phone, newPassword string) int {
	u, err := s.store.Get(phone)
	if err != nil || u == nil || newPassword == "" {
		return 1
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return 1
	}
	u.PasswordHash = hash
	if err := s.store.Put(u); err != nil {
		return 1
	}
	return ResultOK
}

// UpdatePassword replaces an account's password after checking the current
// one. Codes: 0 ok, 1 incorrect current password, 2 other failure.
func (s *Service) UpdatePassword(phone, current, newPassword string) int {
	u, err := s.store.Get(phone)
	if err != nil || u == nil {
		return UpdateOther
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)) != nil {
		return UpdateBadPassword
	}
	if s.ResetPassword(phone, newPassword) != ResultOK {
		return UpdateOther
	}
	return ResultOK
}

// ActiveDevices implements relay.DeviceDirectory, so the relay can preload
// its channel topology from the account store at startup.
func (s *Service) ActiveDevices() ([]relay.DeviceIdentity, error) {
	users, err := s.store.Active()
	if err != nil {
		return nil, err
	}
	devices := make([]relay.DeviceIdentity, 0, len(users))
	for _, u := range users {
		devices = append(devices, relay.DeviceIdentity{Phone: u.Phone, SuperID: u.SuperID})
	}
	return devices, nil
}
