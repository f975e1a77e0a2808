// Package seedr is a client for the Seedr REST v1 API
// (https://www.seedr.cc/docs/api/rest/v1).
package seedr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/mediabridge/mediabridge/internal/version"
)

const (
	DefaultBaseURL    = "https://www.seedr.cc"
	DefaultTimeout    = 60 * time.Second
	DefaultRetryCount = 2

	pathFolder       = "/rest/folder"
	pathFolderByID   = "/rest/folder/{id}"
	pathFolderDelete = "/rest/folder/{id}/delete"
	pathFile         = "/rest/file/{id}"

	maxErrorBody = 512
)

type Config struct {
	BaseURL  string
	Username string
	Password string
	// Timeout bounds a single request, excluding streamed bodies.
	Timeout    time.Duration
	RetryCount int
}

func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrNoCredentials
	}
	return nil
}

type Client struct {
	http *req.Client
}

func New(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := req.C().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetCommonBasicAuth(cfg.Username, cfg.Password).
		SetUserAgent(version.UserAgent()).
		SetTimeout(timeout).
		DisableCompression().
		SetCommonRetryCount(cfg.RetryCount).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 5*time.Second).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.StatusCode >= http.StatusInternalServerError
		}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{http: httpClient}
}

// ListRoot returns the contents of the account root.
func (c *Client) ListRoot(ctx context.Context) (*FolderContents, error) {
	var contents FolderContents
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&contents).
		Get(pathFolder)
	if err := handleAPIError(resp, err, "list root"); err != nil {
		return nil, err
	}
	return &contents, nil
}

// ListFolder returns the direct children of folder id.
func (c *Client) ListFolder(ctx context.Context, id string) (*FolderContents, error) {
	var contents FolderContents
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetSuccessResult(&contents).
		Get(pathFolderByID)
	if err := handleAPIError(resp, err, "list folder "+id); err != nil {
		return nil, err
	}
	return &contents, nil
}

// DownloadRange streams bytes start..end (inclusive) of file id. Anything
// but 206 Partial Content is an error; the caller closes the body.
func (c *Client) DownloadRange(ctx context.Context, id string, start, end int64) (io.ReadCloser, error) {
	op := fmt.Sprintf("download %s bytes=%d-%d", id, start, end)

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetHeader("Range", "bytes="+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)).
		DisableAutoReadResponse().
		Get(pathFile)
	if err != nil {
		return nil, fmt.Errorf("seedr: %s: %w", op, err)
	}

	if resp.StatusCode == http.StatusPartialContent {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil, fmt.Errorf("seedr: %s: status %d: %w", op, resp.StatusCode, ErrNotPartialContent)
}

// DeleteFolder removes folder id. A folder that is already gone counts as
// deleted.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Post(pathFolderDelete)
	err = handleAPIError(resp, err, "delete folder "+id)
	if IsNotFound(err) {
		return nil
	}
	return err
}

func handleAPIError(resp *req.Response, requestErr error, op string) error {
	if requestErr != nil {
		return fmt.Errorf("seedr: %s: %w", op, requestErr)
	}

	if !resp.IsSuccessState() {
		msg := resp.String()
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return newAPIError(op, resp.StatusCode, strings.TrimSpace(msg))
	}

	return nil
}
