package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

func TestStore(t *testing.T) {
	keyring.MockInit()
	store := NewStore("comet-collections-test")

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	token := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(token))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.AccessToken)

	got, err := store.TokenSource(context.Background(), nil).Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", got.AccessToken)

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestTokenSourceExpiredWithoutRefresh(t *testing.T) {
	keyring.MockInit()
	store := NewStore("comet-collections-test")
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}))

	_, err := store.TokenSource(context.Background(), nil).Token()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
