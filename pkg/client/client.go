// Package client provides authenticated HTTP clients for Google APIs.
package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// New creates an HTTP client from a service-account key file.
func New(ctx context.Context, credentialsPath string, scope ...string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	return NewFromJSON(ctx, b, scope...)
}

// NewFromJSON creates an HTTP client from service-account key JSON.
// The client refreshes its token on demand.
func NewFromJSON(ctx context.Context, credentialsJSON []byte, scope ...string) (*http.Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
