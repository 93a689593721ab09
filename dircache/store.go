// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dircache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/veilnet/veild/dirmgr"
)

// descStoreName is the name of the directory that houses the descriptor
// database within the application data directory.
const descStoreName = "descriptors"

// Store is the authoritative-mode descriptor store.  It persists the raw,
// already-verified descriptor documents keyed by the identity digest of the
// router that published them.
type Store struct {
	// db is the database that contains the descriptors.  It is set when
	// the instance is created and is not changed afterward.
	db *leveldb.DB
}

// convertLdbErr converts the passed leveldb error into a store error with an
// equivalent error kind and the passed description.  It also sets the passed
// error as the underlying error and adds its error string to the
// description.
func convertLdbErr(ldbErr error, desc string) Error {
	var kind = ErrStore
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrStoreCorruption
	case errors.Is(ldbErr, leveldb.ErrClosed):
		kind = ErrStoreClosed
	}

	desc = fmt.Sprintf("%s: %v", desc, ldbErr)
	err := makeError(kind, desc)
	err.RawErr = ldbErr
	return err
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// OpenStore opens (or creates when needed) the descriptor store under the
// provided data directory and returns a handle to it.
func OpenStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, descStoreName)

	dbExists := fileExists(dbPath)
	if !dbExists {
		// The error can be ignored here since the call to leveldb.OpenFile
		// will fail if the directory couldn't be created.
		_ = os.MkdirAll(dataDir, 0700)
	}

	log.Infof("Loading descriptor store from '%s'", dbPath)
	opts := opt.Options{
		ErrorIfExist: !dbExists,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open descriptor store")
	}

	return &Store{db: db}, nil
}

// PutDescriptor stores the raw descriptor document published by the router
// with the given identity digest, replacing any previous one.
func (s *Store) PutDescriptor(digest [dirmgr.DigestSize]byte, raw []byte) error {
	if err := s.db.Put(digest[:], raw, nil); err != nil {
		str := fmt.Sprintf("failed to store descriptor %x", digest)
		return convertLdbErr(err, str)
	}
	return nil
}

// Descriptor fetches the raw descriptor stored for the given identity
// digest.  It returns nil for both the descriptor and the error when the
// store does not contain the digest.
//
// It is safe to modify the contents of the returned slice.
func (s *Store) Descriptor(digest [dirmgr.DigestSize]byte) ([]byte, error) {
	raw, err := s.db.Get(digest[:], nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		str := fmt.Sprintf("failed to fetch descriptor %x", digest)
		return nil, convertLdbErr(err, str)
	}
	return raw, nil
}

// DeleteDescriptor removes the descriptor stored for the given identity
// digest.  Deleting a digest that is not stored is not an error.
func (s *Store) DeleteDescriptor(digest [dirmgr.DigestSize]byte) error {
	if err := s.db.Delete(digest[:], nil); err != nil {
		str := fmt.Sprintf("failed to delete descriptor %x", digest)
		return convertLdbErr(err, str)
	}
	return nil
}

// ForEach invokes the provided function for every stored descriptor.  Any
// error returned from the function stops the iteration and is returned.
//
// The slices passed to the function are only valid for the duration of the
// call and must not be retained.
func (s *Store) ForEach(fn func(digest [dirmgr.DigestSize]byte, raw []byte) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) != dirmgr.DigestSize {
			log.Warnf("Skipping malformed store key %x", key)
			continue
		}
		var digest [dirmgr.DigestSize]byte
		copy(digest[:], key)
		if err := fn(digest, iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return convertLdbErr(err, "descriptor iteration failed")
	}
	return nil
}

// Close cleanly shuts down the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return convertLdbErr(err, "failed to close descriptor store")
	}
	return nil
}
