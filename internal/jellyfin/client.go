// Package jellyfin notifies a Jellyfin server that its libraries changed.
package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/imroc/req/v3"
	"github.com/mediabridge/mediabridge/internal/version"
)

const (
	pathLibraryRefresh = "/Library/Refresh"
	defaultTimeout     = 15 * time.Second
	fallbackDeviceID   = "mediabridge"
)

var ErrNoURL = errors.New("jellyfin: url is required")

// RefreshError is a non-2xx answer to a refresh request.
type RefreshError struct {
	Status  int
	Message string
}

func (e *RefreshError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jellyfin: refresh: status %d", e.Status)
	}
	return fmt.Sprintf("jellyfin: refresh: status %d - %s", e.Status, e.Message)
}

type Client struct {
	http *req.Client
}

// New returns a client for the server at baseURL authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	httpClient := req.C().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetUserAgent(version.UserAgent()).
		SetTimeout(defaultTimeout).
		SetCommonHeaders(map[string]string{
			"X-Emby-Token":          apiKey,
			"X-Emby-Client":         version.AppName,
			"X-Emby-Device-Name":    version.AppName,
			"X-Emby-Device-Id":      deviceID(),
			"X-Emby-Client-Version": version.Short(),
		})
	return &Client{http: httpClient}
}

// Refresh asks the server to rescan all libraries. Jellyfin answers 204.
func (c *Client) Refresh(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		Post(pathLibraryRefresh)
	if err != nil {
		return fmt.Errorf("jellyfin: refresh: %w", err)
	}
	if !resp.IsSuccessState() {
		return &RefreshError{Status: resp.StatusCode, Message: strings.TrimSpace(resp.String())}
	}
	return nil
}

var deviceID = sync.OnceValue(func() string {
	id, err := machineid.ProtectedID(version.AppName)
	if err != nil || id == "" {
		return fallbackDeviceID
	}
	if len(id) > 32 {
		id = id[:32]
	}
	return id
})

// Noop is used when no media server is configured.
type Noop struct{}

func (Noop) Refresh(context.Context) error { return nil }
