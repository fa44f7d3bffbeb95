package api

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/sampler"
	"github.com/juruen/rmdigit/session"
)

type constant inference.PredictionVector

func (c constant) Predict(context.Context, sampler.Frame) (inference.PredictionVector, error) {
	return inference.PredictionVector(c), nil
}

func newRegistry(t *testing.T) *Registry {
	r := NewRegistry(classifier.Ready(constant{0, 1}), session.DefaultOptions(), NewTokens("s3cret", time.Hour))
	t.Cleanup(r.Close)
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tok, err := tokens.Issue("abc")
	require.NoError(t, err)

	id, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := NewTokens("one", 0).Issue("abc")
	require.NoError(t, err)

	_, err = NewTokens("two", 0).Parse(tok)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := tokens.Issue("abc")
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.StandardClaims{Id: "abc"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewTokens("s3cret", 0).Parse(tok)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestRegistryLifecycle(t *testing.T) {
	r := newRegistry(t)

	id, tok, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	s, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusReady, s.Status())

	assert.NoError(t, r.Authorize(id, "Bearer "+tok))
	assert.ErrorIs(t, r.Authorize(id, tok), ErrBadToken)
	assert.ErrorIs(t, r.Authorize(id, ""), ErrBadToken)

	require.NoError(t, r.Delete(id))
	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, r.Delete(id), ErrNoSession)
	assert.Zero(t, r.Len())
}

func TestTokenBoundToSession(t *testing.T) {
	r := newRegistry(t)
	a, tokA, err := r.Create()
	require.NoError(t, err)
	b, _, err := r.Create()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.ErrorIs(t, r.Authorize(b, "Bearer "+tokA), ErrBadToken)
}
