// Package identity keeps the signed-in user's OAuth2 token in the OS keyring.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const tokenUser = "oauth-token"

var ErrNotSignedIn = errors.New("not signed in")

type Store struct {
	service string
}

func NewStore(service string) *Store {
	return &Store{service: service}
}

func (s *Store) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := keyring.Set(s.service, tokenUser, string(data)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *Store) Load() (*oauth2.Token, error) {
	data, err := keyring.Get(s.service, tokenUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}

// Delete signs out. Deleting a missing token is not an error.
func (s *Store) Delete() error {
	if err := keyring.Delete(s.service, tokenUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// TokenSource reads the stored token on every call. With a non-nil cfg an
// expired token is refreshed and the new one written back.
func (s *Store) TokenSource(ctx context.Context, cfg *oauth2.Config) oauth2.TokenSource {
	return &keyringSource{ctx: ctx, store: s, cfg: cfg}
}

type keyringSource struct {
	ctx   context.Context
	store *Store
	cfg   *oauth2.Config
}

func (k *keyringSource) Token() (*oauth2.Token, error) {
	token, err := k.store.Load()
	if err != nil {
		return nil, err
	}
	if token.Valid() {
		return token, nil
	}
	if k.cfg == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired", ErrNotSignedIn)
	}

	fresh, err := k.cfg.TokenSource(k.ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if err := k.store.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}
