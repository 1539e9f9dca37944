// Package store is the durable name→container-id map: one bbolt bucket
// per service name, holding "id" (current container id) and "image"
// (current image reference). See spec.md §3 and §6.
package store

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when a service has no sub-namespace, or a
	// sub-namespace exists but the requested key is absent.
	ErrNotFound = errors.New("store: not found")

	keyID    = []byte("id")
	keyImage = []byte("image")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the durable key/value map. A background goroutine flushes the
// underlying file on a fixed cadence; bbolt's page cache stands in for
// the original's 32 MiB in-memory cache (see DESIGN.md).
type Store struct {
	db     *bolt.DB
	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (creating if absent) the durable store at path and starts
// its periodic-flush goroutine at a 1 second cadence.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	go s.flushLoop(1 * time.Second)
	return s, nil
}

func (s *Store) flushLoop(interval time.Duration) {
	defer close(s.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			_ = s.db.Sync()
		}
	}
}

// Close stops the flush loop, performs a final sync, and closes the
// underlying file.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh
	_ = s.db.Sync()
	return s.db.Close()
}

// Put writes id and image into name's sub-namespace, creating it if
// necessary.
func (s *Store) Put(name, id, image string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		compressedID, err := compress(id)
		if err != nil {
			return err
		}
		compressedImage, err := compress(image)
		if err != nil {
			return err
		}
		if err := b.Put(keyID, compressedID); err != nil {
			return err
		}
		return b.Put(keyImage, compressedImage)
	})
}

// Get returns the current (id, image) pair for name.
func (s *Store) Get(name string) (id, image string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrNotFound
		}
		rawID := b.Get(keyID)
		if rawID == nil {
			return ErrNotFound
		}
		id, err = decompress(rawID)
		if err != nil {
			return err
		}
		if rawImage := b.Get(keyImage); rawImage != nil {
			image, err = decompress(rawImage)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return id, image, err
}

// List returns every tracked service name mapped to its current
// container id, for the management API's deployment/lease listings
// (spec.md §6).
func (s *Store) List() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			rawID := b.Get(keyID)
			if rawID == nil {
				return nil
			}
			id, err := decompress(rawID)
			if err != nil {
				return err
			}
			out[string(name)] = id
			return nil
		})
	})
	return out, err
}

// Delete drops name's entire sub-namespace. Idempotent: deleting an
// already-absent name is not an error (engine stop/delete semantics are
// explicitly idempotent per spec.md §7).
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(name))
	})
}

func compress(value string) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(value)); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	return string(out), nil
}
