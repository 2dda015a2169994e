package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	req := require.New(t)
	j := New("test-secret")

	tok, err := j.Sign("user-42", time.Hour)
	req.NoError(err)
	req.NotEmpty(tok)

	uid, err := j.Verify(tok)
	req.NoError(err)
	req.Equal("user-42", uid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	j := New("test-secret")

	tok, err := j.Sign("user-42", -time.Minute)
	req.NoError(err)

	_, err = j.Verify(tok)
	req.Error(err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	tok, err := New("secret-a").Sign("user-42", time.Hour)
	req.NoError(err)

	_, err = New("secret-b").Verify(tok)
	req.Error(err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	req := require.New(t)
	j := New("test-secret")

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := j.Verify(tok)
		req.Error(err, "token %q", tok)
	}
}

func TestSignRejectsEmptySubject(t *testing.T) {
	_, err := New("test-secret").Sign("", time.Hour)
	require.ErrorIs(t, err, ErrNoSubject)
}

func TestUserContext(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	req.Empty(UserID(ctx))
	req.Equal("user-42", UserID(WithUser(ctx, "user-42")))
}
