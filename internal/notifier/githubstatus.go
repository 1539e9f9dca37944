package notifier

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GitHubStatusSink posts commit-status updates via a GitHub App identity.
// It can only represent deployment events (it needs a commit SHA); other
// event kinds are skipped silently, per spec.md §4.8.
type GitHubStatusSink struct {
	appID          int64
	installationID int64
	repository     string
	key            *rsa.PrivateKey
	httpClient     *http.Client

	mu          sync.Mutex
	installTok  string
	installExp  time.Time
}

// NewGitHubStatusSink loads the App's private key from keyPath and builds
// a sink that posts commit statuses to repository (owner/name).
func NewGitHubStatusSink(appID, installationID int64, keyPath, repository string) (*GitHubStatusSink, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("github status sink: read key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("github status sink: invalid PEM in %s", keyPath)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("github status sink: parse private key: %w", err)
	}

	return &GitHubStatusSink{
		appID:          appID,
		installationID: installationID,
		repository:     repository,
		key:            key,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *GitHubStatusSink) appJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    fmt.Sprintf("%d", s.appID),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.key)
}

func (s *GitHubStatusSink) installationToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.installTok != "" && time.Now().Before(s.installExp) {
		return s.installTok, nil
	}

	appTok, err := s.appJWT()
	if err != nil {
		return "", fmt.Errorf("github status sink: mint app jwt: %w", err)
	}

	url := fmt.Sprintf("https://api.github.com/app/installations/%d/access_tokens", s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("github status sink: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appTok)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github status sink: request installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("github status sink: installation token status %d", resp.StatusCode)
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("github status sink: decode installation token: %w", err)
	}

	s.installTok = body.Token
	s.installExp = body.ExpiresAt.Add(-1 * time.Minute)
	return s.installTok, nil
}

func githubState(state State) string {
	switch state.Kind {
	case StateInProgress:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "error"
	}
}

// Notify posts a commit status for deployment events; it silently skips
// service-update and service-delete events, which carry no commit SHA.
func (s *GitHubStatusSink) Notify(ctx context.Context, event Event) error {
	if event.Kind != EventDeployment {
		return nil
	}

	tok, err := s.installationToken(ctx)
	if err != nil {
		return err
	}

	body := struct {
		State       string `json:"state"`
		Description string `json:"description,omitempty"`
		Context     string `json:"context"`
	}{
		State:       githubState(event.State),
		Description: event.State.Reason,
		Context:     "wafflemaker",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("github status sink: marshal body: %w", err)
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/statuses/%s", s.repository, event.Commit)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("github status sink: build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github status sink: post status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github status sink: unexpected status %d", resp.StatusCode)
	}
	return nil
}
