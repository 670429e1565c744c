package remote

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v39/github"
)

// userAgent is sent with every request.
const userAgent = "javelin"

// Option customizes the GitHub client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	uploadURL  string
	httpClient *http.Client
}

// WithBaseURL points API calls at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		o.baseURL = u
	}
}

// WithUploadURL points asset uploads at a GitHub Enterprise or test server.
func WithUploadURL(u string) Option {
	return func(o *clientOptions) {
		o.uploadURL = u
	}
}

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped with token auth.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// ErrEmptyToken is returned when no access token is given.
var ErrEmptyToken = errors.New("github token is empty")

// NewClient builds an authenticated GitHub client.
func NewClient(token string, options ...Option) (*github.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyToken
	}

	opts := new(clientOptions)
	for _, apply := range options {
		apply(opts)
	}

	base := http.DefaultTransport
	httpClient := new(http.Client)

	if opts.httpClient != nil {
		*httpClient = *opts.httpClient
		if opts.httpClient.Transport != nil {
			base = opts.httpClient.Transport
		}
	}

	httpClient.Transport = &tokenTransport{
		token: token,
		base:  base,
	}

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent

	if opts.baseURL != "" {
		u, err := parseEndpoint(opts.baseURL)
		if err != nil {
			return nil, err
		}

		client.BaseURL = u
	}

	if opts.uploadURL != "" {
		u, err := parseEndpoint(opts.uploadURL)
		if err != nil {
			return nil, err
		}

		client.UploadURL = u
	}

	return client, nil
}

// parseEndpoint parses u and ensures the trailing slash go-github requires.
func parseEndpoint(u string) (*url.URL, error) {
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}

	return url.Parse(u)
}

// tokenTransport authenticates every request with a bearer token.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)

	return t.base.RoundTrip(clone)
}
