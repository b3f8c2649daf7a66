// Package remote reads and writes the snapshot as a file in a hosted
// repository through the GitHub contents API.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/memodesk/internal/models"
)

// Options locate the hosted file and tune the HTTP client.
type Options struct {
	APIBase     string
	RawBase     string
	Branch      string
	Path        string
	Timeout     time.Duration // zero leaves the client without a deadline
	ReadRetries int           // retries for recoverable read failures
}

// Client performs the three calls the adapter needs.
type Client struct {
	http    *http.Client
	opts    Options
	account string
	repo    string
	token   string
}

// NewClient builds a Client for the repository named in s. If hc is nil a
// client with opts.Timeout is created.
func NewClient(s models.Settings, opts Options, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:    hc,
		opts:    opts,
		account: s.Account,
		repo:    s.RepositoryName,
		token:   s.AccessToken,
	}
}

// HasToken reports whether authenticated calls can be made.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) rawURL() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		strings.TrimRight(c.opts.RawBase, "/"),
		url.PathEscape(c.account), url.PathEscape(c.repo),
		url.PathEscape(c.opts.Branch), c.opts.Path)
}

func (c *Client) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(c.opts.APIBase, "/"),
		url.PathEscape(c.account), url.PathEscape(c.repo), c.opts.Path)
}

// FetchRaw downloads the file body without authentication.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	var body []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rawURL(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Cache-Control", "no-cache")
		b, err := c.do(req, "fetch raw")
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

type contentMeta struct {
	SHA string `json:"sha"`
}

// FetchSHA returns the current version token of the file, or "" with
// found=false when the file does not exist yet.
func (c *Client) FetchSHA(ctx context.Context) (sha string, found bool, err error) {
	err = c.retry(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(), nil)
		if rerr != nil {
			return backoff.Permanent(rerr)
		}
		c.authorize(req)
		b, rerr := c.do(req, "fetch metadata")
		if rerr != nil {
			return rerr
		}
		var meta contentMeta
		if rerr := json.Unmarshal(b, &meta); rerr != nil {
			return backoff.Permanent(fmt.Errorf("remote: decode metadata: %w", rerr))
		}
		sha, found = meta.SHA, true
		return nil
	})
	var re *Error
	if errors.As(err, &re) && re.Status == http.StatusNotFound {
		return "", false, nil
	}
	return sha, found, err
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

// Put uploads content as the new file body. An empty sha creates the file.
func (c *Client) Put(ctx context.Context, content []byte, sha, message string) error {
	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	})
	if err != nil {
		return fmt.Errorf("remote: encode put: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, "put")
	return err
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("remote: %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: eb.Message}
	}
	return body, nil
}

// retry runs op, retrying recoverable failures up to opts.ReadRetries times
// with exponential backoff.
func (c *Client) retry(ctx context.Context, op func() error) error {
	wrapped := func() error {
		err := op()
		if err != nil && !recoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if c.opts.ReadRetries <= 0 {
		err := wrapped()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.Multiplier = 2
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.ReadRetries)), ctx)
	return backoff.Retry(wrapped, b)
}
