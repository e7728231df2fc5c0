package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// scopes requested for deadline mirroring.
var scopes = []string{calendar.CalendarEventsScope}

// OAuthConfig reads the OAuth client secrets downloaded from the Google Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file %s: %w", credentialsFile, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file %s: %w", credentialsFile, err)
	}
	return cfg, nil
}

// AuthURL returns the consent page URL the user visits to obtain a code.
func AuthURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for a token and caches it at tokenFile.
func ExchangeCode(ctx context.Context, cfg *oauth2.Config, code, tokenFile string) error {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return saveToken(tokenFile, tok)
}

// NewService builds an authenticated Calendar service from the client
// secrets and the cached token. The returned client refreshes the token
// as needed.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*calendar.Service, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no usable calendar token (run `taskpilot calendar-auth`): %w", err)
	}

	return newService(ctx, cfg.Client(ctx, tok))
}

func newService(ctx context.Context, client *http.Client) (*calendar.Service, error) {
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return srv, nil
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token from %s: %w", path, err)
	}
	return tok, nil
}

// saveToken writes tok to path, readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("caching token to %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
