package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// HTTPIdentityProvider talks to the identity provider's REST API with
// bearer-token auth. Every call passes the courtesy rate limiter first.
type HTTPIdentityProvider struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPIdentityProvider(opts Options) (*HTTPIdentityProvider, error) {
	u, err := url.Parse(opts.IDPBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid identity provider base URL: %q", opts.IDPBaseURL)
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 4.0
	}
	return &HTTPIdentityProvider{
		baseURL: u.String(),
		token:   opts.Token,
		client:  newHTTPClient(opts.Timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (p *HTTPIdentityProvider) do(ctx context.Context, method, u string) (Result, []byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, nil, err
	}
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+p.token)
	return do(ctx, p.client, method, u, hdr)
}

func (p *HTTPIdentityProvider) LookupByEmail(ctx context.Context, email string) (string, Result, error) {
	u := p.baseURL + "/users-by-email?email=" + url.QueryEscape(email)
	res, body, err := p.do(ctx, http.MethodGet, u)
	if err != nil {
		return "", res, err
	}
	if res.Status != http.StatusOK {
		return "", res, nil
	}
	var users []struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return "", res, fmt.Errorf("decode lookup response for %s: %w", email, err)
	}
	if len(users) == 0 {
		return "", res, nil
	}
	return users[0].UserID, res, nil
}

func (p *HTTPIdentityProvider) DeleteUser(ctx context.Context, id string) (Result, error) {
	res, _, err := p.do(ctx, http.MethodDelete, p.baseURL+"/users/"+url.PathEscape(id))
	return res, err
}

func (p *HTTPIdentityProvider) GetUser(ctx context.Context, id string) (Result, error) {
	res, _, err := p.do(ctx, http.MethodGet, p.baseURL+"/users/"+url.PathEscape(id))
	return res, err
}
