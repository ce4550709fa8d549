package net

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "keydist (github.com/akarper/keydist)"
)

var reqTransport = &http.Transport{
	MaxIdleConns:          maxIdleConns,
	IdleConnTimeout:       timeoutInSeconds * time.Second,
	DisableCompression:    true,
	DisableKeepAlives:     false,
	ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
}

// GetHTTPClient returns the shared HTTP client used for provider calls.
func GetHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	return &http.Client{
		Timeout:   time.Duration(timeoutInSeconds) * time.Second,
		Transport: reqTransport,
		Jar:       jar,
	}, nil
}

// GetBearerClient returns a client that sends the given token as a bearer
// Authorization header on every request.
func GetBearerClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	return oauth2.NewClient(ctx, ts)
}
