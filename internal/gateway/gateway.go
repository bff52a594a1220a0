// Package gateway contains the two backend clients behind small adapter
// interfaces. Each has an "http" implementation talking to the real service
// and a "mock" implementation backed by an in-memory store for local
// rehearsal runs and tests. Classification of HTTP statuses into outcomes
// happens in the stage layer; the gateways only report what the wire said.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the raw observation from one request: the HTTP status plus a
// compacted response body usable as an error detail.
type Result struct {
	Status int
	Detail string
}

// IdentityProvider is the external identity service holding its own user
// records and IDs.
type IdentityProvider interface {
	// LookupByEmail returns the provider-assigned ID of the first user
	// matching the email, or "" when the provider answered 200 with no match.
	LookupByEmail(ctx context.Context, email string) (string, Result, error)
	DeleteUser(ctx context.Context, id string) (Result, error)
	GetUser(ctx context.Context, id string) (Result, error)
}

// Directory is the internal admin/user-directory service, keyed by email.
type Directory interface {
	DeleteByEmail(ctx context.Context, email string) (Result, error)
	GetByEmail(ctx context.Context, email string) (Result, error)
}

type Options struct {
	Kind string // http | mock

	DirectoryBaseURL string
	IDPBaseURL       string
	Token            string

	// Courtesy request rate toward the identity provider. Advisory only.
	RPS float64

	// Per-request timeout for the http kind. Zero means 20s.
	Timeout time.Duration
}

var ErrUnknownGatewayKind = errors.New("unknown gateway kind")

// New builds both clients for the requested kind. The mock pair shares one
// store so a resolve/delete/verify sequence behaves end to end.
func New(opts Options) (IdentityProvider, Directory, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", "http":
		idp, err := NewHTTPIdentityProvider(opts)
		if err != nil {
			return nil, nil, err
		}
		dir, err := NewHTTPDirectory(opts)
		if err != nil {
			return nil, nil, err
		}
		return idp, dir, nil
	case "mock":
		m := NewMock()
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownGatewayKind, opts.Kind)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   4 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// do issues one request and reads a bounded body. A non-nil error means the
// request never produced a status (transport failure or cancellation).
func do(ctx context.Context, client *http.Client, method, url string, header http.Header) (Result, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Result{}, nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, nil, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	return Result{Status: resp.StatusCode, Detail: CompactDetail(body)}, body, nil
}

const maxDetailLen = 200

// CompactDetail collapses a response body into a single log-safe line of at
// most 200 characters.
func CompactDetail(body []byte) string {
	s := strings.TrimSpace(string(body))
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxDetailLen {
		s = s[:maxDetailLen-3] + "..."
	}
	return s
}
