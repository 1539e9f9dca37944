// Package vault wraps the HashiCorp Vault HTTP API for the static-secret,
// AWS-credential, and database-credential operations WaffleMaker's job
// state machines need (spec.md §4.4, §4.5, §4.6).
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin, thread-safe wrapper over Vault's HTTP API. A single
// instance is held as a process-wide handle (spec.md §5: "Vault client:
// thread-safe reusable handle held as a process singleton").
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a Client against address, authenticating with token.
func New(address, token string) *Client {
	return &Client{
		baseURL: address,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vault: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("vault: build request: %w", err)
	}
	req.Header.Set("X-Vault-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vault: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Path: path}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vault: decode response from %s: %w", path, err)
	}
	return nil
}

// CheckPerms validates the configured token carries the capabilities
// WaffleMaker needs on the paths it will touch. Called once at startup;
// a failure is fatal (spec.md §7).
func (c *Client) CheckPerms(ctx context.Context, paths []string) error {
	type capsRequest struct {
		Paths []string `json:"paths"`
	}
	var resp struct {
		Data map[string][]string `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, "/v1/sys/capabilities-self", capsRequest{Paths: paths}, &resp); err != nil {
		return fmt.Errorf("vault: check perms: %w", err)
	}

	var missing []string
	for _, p := range paths {
		caps, ok := resp.Data[p]
		if !ok || !hasUsableCapability(caps) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &ErrInvalidPermissions{Paths: missing}
	}
	return nil
}

func hasUsableCapability(caps []string) bool {
	for _, c := range caps {
		if c == "deny" {
			return false
		}
		if c == "read" || c == "create" || c == "update" || c == "list" || c == "sudo" {
			return true
		}
	}
	return false
}

// RenewSelf renews the client's own token. Used by the token renewer
// (spec.md §4.6).
func (c *Client) RenewSelf(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/token/renew-self", nil, nil)
}

// RenewLease renews a previously issued dynamic-secret lease.
func (c *Client) RenewLease(ctx context.Context, leaseID string) error {
	body := struct {
		LeaseID string `json:"lease_id"`
	}{LeaseID: leaseID}
	return c.do(ctx, http.MethodPost, "/v1/sys/leases/renew", body, nil)
}

// RevokeLease revokes a dynamic-secret lease immediately (used by
// UpdateService S6/S7 and DeleteService on container teardown).
func (c *Client) RevokeLease(ctx context.Context, leaseID string) error {
	body := struct {
		LeaseID string `json:"lease_id"`
	}{LeaseID: leaseID}
	return c.do(ctx, http.MethodPost, "/v1/sys/leases/revoke", body, nil)
}

// StaticBundle is the map of slot-name → value stored for a service's
// static secrets (spec.md §4.4 S2).
type StaticBundle map[string]string

// FetchStatic reads the previously-stored static secret bundle for name.
// Returns an empty bundle, not an error, when none has been stored yet.
func (c *Client) FetchStatic(ctx context.Context, name string) (StaticBundle, error) {
	var resp struct {
		Data struct {
			Data StaticBundle `json:"data"`
		} `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/services/data/"+name, nil, &resp)
	if IsNotFound(err) {
		return StaticBundle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: fetch static secrets for %q: %w", name, err)
	}
	if resp.Data.Data == nil {
		return StaticBundle{}, nil
	}
	return resp.Data.Data, nil
}

// PutStatic writes the (possibly mutated) static bundle back to Vault
// (spec.md §4.4 S9).
func (c *Client) PutStatic(ctx context.Context, name string, bundle StaticBundle) error {
	body := struct {
		Data StaticBundle `json:"data"`
	}{Data: bundle}
	if err := c.do(ctx, http.MethodPost, "/v1/services/data/"+name, body, nil); err != nil {
		return fmt.Errorf("vault: put static secrets for %q: %w", name, err)
	}
	return nil
}

// Credentials is a broker-issued access/secret credential pair, along
// with the lease metadata needed to renew or revoke it.
type Credentials struct {
	AccessKey string
	SecretKey string
	LeaseID   string
	LeaseTTL  int64
}

// AWSCredentials requests fresh dynamic AWS credentials for role.
func (c *Client) AWSCredentials(ctx context.Context, role string) (Credentials, error) {
	var resp struct {
		LeaseID       string `json:"lease_id"`
		LeaseDuration int64  `json:"lease_duration"`
		Data          struct {
			AccessKey string `json:"access_key"`
			SecretKey string `json:"secret_key"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/aws/creds/"+role, nil, &resp); err != nil {
		return Credentials{}, fmt.Errorf("vault: aws credentials for role %q: %w", role, err)
	}
	return Credentials{
		AccessKey: resp.Data.AccessKey,
		SecretKey: resp.Data.SecretKey,
		LeaseID:   resp.LeaseID,
		LeaseTTL:  resp.LeaseDuration,
	}, nil
}

// ListDatabaseRoles lists the static database roles Vault currently
// manages. Returns an empty list, not an error, when the backend has no
// roles mounted yet.
func (c *Client) ListDatabaseRoles(ctx context.Context) ([]string, error) {
	var resp struct {
		Data struct {
			Keys []string `json:"keys"`
		} `json:"data"`
	}
	err := c.do(ctx, "LIST", "/v1/database/static-roles", nil, &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: list database roles: %w", err)
	}
	return resp.Data.Keys, nil
}

// CreateDatabaseRole creates a static database role using the broker's
// fixed creation-statement templates (spec.md §4.4 S3 "postgres").
func (c *Client) CreateDatabaseRole(ctx context.Context, role string) error {
	if err := c.do(ctx, http.MethodPost, "/v1/database/static-roles/"+role, nil, nil); err != nil {
		return fmt.Errorf("vault: create database role %q: %w", role, err)
	}
	return nil
}

// DeleteDatabaseRole deletes a static database role. Not-found is
// swallowed by the caller (spec.md §4.5 step 8: "Best-effort
// vault.delete_database_role(...) — ignore not found").
func (c *Client) DeleteDatabaseRole(ctx context.Context, role string) error {
	return c.do(ctx, http.MethodDelete, "/v1/database/static-roles/"+role, nil, nil)
}

// DatabaseCredentials requests the current credentials for a static
// database role.
func (c *Client) DatabaseCredentials(ctx context.Context, role string) (Credentials, error) {
	var resp struct {
		LeaseID       string `json:"lease_id"`
		LeaseDuration int64  `json:"lease_duration"`
		Data          struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/database/static-creds/"+role, nil, &resp); err != nil {
		return Credentials{}, fmt.Errorf("vault: database credentials for role %q: %w", role, err)
	}
	return Credentials{
		AccessKey: resp.Data.Username,
		SecretKey: resp.Data.Password,
		LeaseID:   resp.LeaseID,
		LeaseTTL:  resp.LeaseDuration,
	}, nil
}

// RotateDatabaseCredentials forces an immediate credential rotation for a
// static database role.
func (c *Client) RotateDatabaseCredentials(ctx context.Context, role string) error {
	if err := c.do(ctx, http.MethodPost, "/v1/database/rotate-role/"+role, nil, nil); err != nil {
		return fmt.Errorf("vault: rotate database credentials for role %q: %w", role, err)
	}
	return nil
}
