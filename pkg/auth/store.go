// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package auth

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// A Store persists handset accounts keyed by phone.
type Store interface {
	// Get returns the account for phone, or nil if none exists.
	Get(phone string) (*User, error)
	// Put inserts or updates an account. New accounts (ID 0) are
	// assigned the next id.
	Put(u *User) error
	// Active returns every account that is not deleted.
	Active() ([]*User, error)
	Close() error
}

var (
	userPrefix = []byte("user/")
	nextIDKey  = []byte("meta/next_id")
)

// levelStore is a Store on a goleveldb database.
type levelStore struct {
	db *leveldb.DB
}

// OpenStore opens (creating if needed) the account database at path.
func OpenStore(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Open account database")
	}
	return &levelStore{db: db}, nil
}

// OpenMemStore opens a Store backed by memory, for tests.
func OpenMemStore() Store {
	db, _ := leveldb.Open(storage.NewMemStorage(), nil)
	return &levelStore{db: db}
}

func userKey(phone string) []byte {
	return append(append([]byte{}, userPrefix...), phone...)
}

func (s *levelStore) Get(phone string) (*User, error) {
	data, err := s.db.Get(userKey(phone), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Get account")
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.Wrap(err, "Decode account")
	}
	return &u, nil
}

func (s *levelStore) Put(u *User) error {
	if u.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return err
		}
		u.ID = id
	}
	data, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "Encode account")
	}
	return errors.Wrap(s.db.Put(userKey(u.Phone), data, nil), "Put account")
}

func (s *levelStore) Active() ([]*User, error) {
	var users []*User
	iter := s.db.NewIterator(util.BytesPrefix(userPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		var u User
		if err := json.Unmarshal(iter.Value(), &u); err != nil {
			return nil, errors.Wrap(err, "Decode account")
		}
		if u.Status == StatusDeleted {
			continue
		}
		users = append(users, &u)
	}
	return users, errors.Wrap(iter.Error(), "Scan accounts")
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

func (s *levelStore) nextID() (int64, error) {
	var id int64 = 1
	if data, err := s.db.Get(nextIDKey, nil); err == nil {
		id = int64(binary.BigEndian.Uint64(data)) + 1
	} else if err != leveldb.ErrNotFound {
		return 0, errors.Wrap(err, "Get id counter")
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	if err := s.db.Put(nextIDKey, buf[:], nil); err != nil {
		return 0, errors.Wrap(err, "Put id counter")
	}
	return id, nil
}
