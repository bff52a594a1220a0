package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPDirectory talks to the internal admin/user-directory REST API.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(opts Options) (*HTTPDirectory, error) {
	u, err := url.Parse(opts.DirectoryBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid directory base URL: %q", opts.DirectoryBaseURL)
	}
	return &HTTPDirectory{
		baseURL: u.String(),
		client:  newHTTPClient(opts.Timeout),
	}, nil
}

func (d *HTTPDirectory) DeleteByEmail(ctx context.Context, email string) (Result, error) {
	res, _, err := do(ctx, d.client, http.MethodDelete, d.baseURL+"/users/email/"+url.PathEscape(email), nil)
	return res, err
}

func (d *HTTPDirectory) GetByEmail(ctx context.Context, email string) (Result, error) {
	res, _, err := do(ctx, d.client, http.MethodGet, d.baseURL+"/users/email/"+url.PathEscape(email), nil)
	return res, err
}
