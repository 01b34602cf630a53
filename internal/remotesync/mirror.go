// Package remotesync mirrors saved snapshots to a remote backup on a best
// effort basis. There is no conflict resolution: the last upload wins.
package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/lifematrix/internal/identity"
	"github.com/starford/lifematrix/internal/models"
)

// Sync modes.
const (
	ModeNone = "none"
	ModeHTTP = "http"
)

// Mirror uploads a snapshot for an authenticated user.
type Mirror interface {
	Mirror(ctx context.Context, user identity.Handle, snap models.Snapshot) error
}

// Noop discards every snapshot.
type Noop struct{}

// Mirror does nothing.
func (Noop) Mirror(context.Context, identity.Handle, models.Snapshot) error { return nil }

// HTTP PUTs the snapshot as JSON to {endpoint}/{user id}.
type HTTP struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTP returns an HTTP mirror. token, when set, is sent as a bearer token.
func NewHTTP(endpoint, token string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// Mirror uploads snap. Any non-2xx response is an error.
func (h *HTTP) Mirror(ctx context.Context, user identity.Handle, snap models.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("remotesync: marshal: %w", err)
	}
	target := h.endpoint + "/" + url.PathEscape(user.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remotesync: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("remotesync: upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remotesync: upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

var (
	_ Mirror = Noop{}
	_ Mirror = (*HTTP)(nil)
)
