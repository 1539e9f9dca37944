// Package dnspublisher writes per-service A records into the shared
// Redis-backed key/value store a downstream DNS responder reads from
// (spec.md §4.4 S8, §6 "DNS record format").
package dnspublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound marks a lookup against a domain form with no registered
// record.
var ErrNotFound = errors.New("dnspublisher: not found")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ARecord is one address entry in a published DNS record.
type ARecord struct {
	IP  string `json:"ip"`
	TTL int    `json:"ttl"`
}

// Record is the JSON value stored per service-domain-form.
type Record struct {
	A []ARecord `json:"a"`
}

// Client publishes and removes DNS records in the configured Redis
// key/value store.
type Client struct {
	rdb       *redis.Client
	keyPrefix string
	zone      string
}

// New constructs a Client against kvURL (a redis:// connection string),
// namespacing every key under keyPrefix + zone + ".".
func New(kvURL, keyPrefix, zone string) (*Client, error) {
	opts, err := redis.ParseURL(kvURL)
	if err != nil {
		return nil, fmt.Errorf("dnspublisher: parse kv_url: %w", err)
	}
	return &Client{
		rdb:       redis.NewClient(opts),
		keyPrefix: keyPrefix,
		zone:      zone,
	}, nil
}

func (c *Client) key(domainForm string) string {
	return c.keyPrefix + c.zone + "." + domainForm
}

// Register writes an A record for domainForm, replacing any prior value.
func (c *Client) Register(ctx context.Context, domainForm, ip string, ttl int) error {
	record := Record{A: []ARecord{{IP: ip, TTL: ttl}}}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("dnspublisher: marshal record: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(domainForm), data, 0).Err(); err != nil {
		return fmt.Errorf("dnspublisher: register %q: %w", domainForm, err)
	}
	return nil
}

// Lookup returns the currently published record for domainForm.
func (c *Client) Lookup(ctx context.Context, domainForm string) (Record, error) {
	data, err := c.rdb.Get(ctx, c.key(domainForm)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("dnspublisher: lookup %q: %w", domainForm, err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("dnspublisher: unmarshal record for %q: %w", domainForm, err)
	}
	return record, nil
}

// Unregister removes the record for domainForm. Idempotent: removing an
// absent record is not an error.
func (c *Client) Unregister(ctx context.Context, domainForm string) error {
	if err := c.rdb.Del(ctx, c.key(domainForm)).Err(); err != nil {
		return fmt.Errorf("dnspublisher: unregister %q: %w", domainForm, err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
