package credstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mazurov/tc-credentials/internal/credentials"
)

// mapKeyring is an in-memory Keyring that can be told to fail
type mapKeyring struct {
	items map[string]string
	err   error
}

func newMapKeyring() *mapKeyring {
	return &mapKeyring{items: map[string]string{}}
}

func (k *mapKeyring) Get(service, account string) (string, error) {
	if k.err != nil {
		return "", k.err
	}
	v, ok := k.items[service+"/"+account]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (k *mapKeyring) Set(service, account, secret string) error {
	if k.err != nil {
		return k.err
	}
	k.items[service+"/"+account] = secret
	return nil
}

func (k *mapKeyring) Delete(service, account string) error {
	if k.err != nil {
		return k.err
	}
	if _, ok := k.items[service+"/"+account]; !ok {
		return keyring.ErrNotFound
	}
	delete(k.items, service+"/"+account)
	return nil
}

func TestKeyringBackend_LifecycleWithMockProvider(t *testing.T) {
	keyring.MockInit()
	b := NewKeyringBackend("teamcity:", OSKeyring{}, newTestLogger())
	ctx := context.Background()

	creds, err := b.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, b.Set(ctx, credentials.New("http://h", "u", "p")))

	creds, err = b.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.True(t, credentials.New("http://h", "u", "p").Equal(*creds))

	require.NoError(t, b.Remove(ctx))
	require.NoError(t, b.Remove(ctx), "second remove is a no-op")

	creds, err = b.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestKeyringBackend_IndexTracksTargets(t *testing.T) {
	ring := newMapKeyring()
	b := NewKeyringBackend("teamcity:", ring, newTestLogger())
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, credentials.New("http://h", "u", "p")))
	require.NoError(t, b.Set(ctx, credentials.New("http://h", "u", "p2")))

	target := credentials.EncodeTarget("http://h", "u")
	assert.Equal(t, `["`+target+`"]`, ring.items["teamcity:/index"], "same target is indexed once")
	assert.Equal(t, "p2", ring.items["teamcity:/"+target])

	require.NoError(t, b.Remove(ctx))
	assert.Empty(t, ring.items)
}

func TestKeyringBackend_GetAmbiguousFirstWins(t *testing.T) {
	var logs bytes.Buffer
	ring := newMapKeyring()
	first := credentials.EncodeTarget("http://first", "a")
	second := credentials.EncodeTarget("http://second", "b")
	ring.items["teamcity:/index"] = `["` + first + `","` + second + `"]`
	ring.items["teamcity:/"+first] = "1"
	ring.items["teamcity:/"+second] = "2"
	b := NewKeyringBackend("teamcity:", ring, newCapturingLogger(&logs))

	creds, err := b.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "http://first", creds.ServerURL)
	assert.Equal(t, "1", creds.Password)
	assert.Equal(t, 1, countWarnings(&logs))
}

func TestKeyringBackend_Failures(t *testing.T) {
	ring := newMapKeyring()
	ring.err = errors.New("dbus unavailable")
	b := NewKeyringBackend("teamcity:", ring, newTestLogger())
	ctx := context.Background()

	_, err := b.Get(ctx)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, b.Set(ctx, credentials.New("http://h", "u", "p")), ErrBackend)
	assert.ErrorIs(t, b.Remove(ctx), ErrBackend)
}

func TestKeyringBackend_CorruptIndex(t *testing.T) {
	ring := newMapKeyring()
	ring.items["teamcity:/index"] = "not json"
	b := NewKeyringBackend("teamcity:", ring, newTestLogger())

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, ErrMalformedSecret)
}
