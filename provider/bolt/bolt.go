// Package bolt persists frames in a local bbolt file, so a single-host
// deployment keeps its cache across restarts of the same revision.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	pr "github.com/unkn0wn-root/assetram/provider"
)

const defaultBucket = "asset_ram"

var ErrNilDB = errors.New("bolt provider: nil db")

// Provider stores each value as: 8 bytes big endian expiresAt (unix nanos,
// 0 = never) || raw value. Expired entries read as misses and are removed lazily.
type Provider struct {
	db      *bolt.DB
	bucket  []byte
	closeDB bool
	now     func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// Bucket is the name of the Bolt bucket to use; "" => "asset_ram".
	Bucket string
	// Timeout bounds waiting for the file lock in Open; 0 => 1s.
	Timeout time.Duration
}

// Open opens (or creates) the database at path. The provider owns the DB.
func Open(path string, cfg Config) (*Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	p, err := New(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	p.closeDB = true
	return p, nil
}

// New wraps an already open DB. Close will not close it.
func New(db *bolt.DB, cfg Config) (*Provider, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	bucket := []byte(defaultBucket)
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		return nil, err
	}
	return &Provider{db: db, bucket: bucket, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	var (
		out     []byte
		found   bool
		expired bool
	)
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) < 8 {
			// not ours; report a hit so the wire check self-heals it
			out, found = append([]byte(nil), v...), true
			return nil
		}
		expiresAt := int64(binary.BigEndian.Uint64(v[:8]))
		if expiresAt > 0 && p.now().UnixNano() >= expiresAt {
			expired = true
			return nil
		}
		// bbolt memory is only valid inside the transaction
		out, found = append([]byte(nil), v[8:]...), true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if expired {
		_ = p.Del(context.Background(), key)
	}
	return out, found, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = p.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	copy(buf[8:], value)

	err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(key), buf)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(key))
	})
}

func (p *Provider) Close(_ context.Context) error {
	if !p.closeDB {
		return nil
	}
	return p.db.Close()
}
