package umnico

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"umnico/internal/platform/config"
)

const APIVersion = "v1.3"

// ErrTransport marks failures before a response was received.
var ErrTransport = errors.New("umnico: transport failure")

type Client struct {
	BaseURL string
	Token   string

	HTTP *http.Client
}

func NewClient(cfg config.UmnicoConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   cfg.AuthHeader,
		HTTP: &http.Client{
			// zero keeps the transport default
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many (>=10) redirects, cancelling request")
				}
				return nil
			},
		},
	}
}

// MakeURI joins endpoint onto the versioned API root. A trailing slash on
// endpoint is kept since the webhooks collection is addressed as "webhooks/".
func (c *Client) MakeURI(endpoint string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	joined := path.Join("/", u.Path, APIVersion, endpoint)
	if strings.HasSuffix(endpoint, "/") {
		joined += "/"
	}
	u.Path = joined
	return u.String(), nil
}

// Do issues one blocking call. A non-nil error always wraps ErrTransport;
// non-2xx responses are returned as a Response with OK unset.
func (c *Client) Do(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	uri, err := c.MakeURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: build url: %v", ErrTransport, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrTransport, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body after %v: %v", ErrTransport, time.Since(start), err)
	}

	return Wrap(resp.StatusCode, data), nil
}
