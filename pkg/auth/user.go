// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package auth manages handset accounts: registration, credential checks,
// and password changes. The relay never reads credentials; it only
// consumes the phone/administrator mapping through relay.DeviceDirectory.
package auth

// Status is the lifecycle state of an account.
type Status int

const (
	StatusNormal Status = iota
	StatusBlocked
	StatusDeleted
)

// A User is one handset account.
type User struct {
	ID           int64  `json:"id"`
	Phone        string `json:"phone"`
	SuperID      string `json:"super_id"`
	PasswordHash []byte `json:"password_hash"`
	Status       Status `json:"status"`
}
