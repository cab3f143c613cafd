package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T, accessKey string) AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService("test-secret", string(hash))
}

func TestStaffLoginRoundTrip(t *testing.T) {
	svc := newTestAuthService(t, "let-me-in")

	token, err := svc.StaffLogin("let-me-in")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, svc.ParseStaffToken(token))
}

func TestStaffLoginRejectsWrongKey(t *testing.T) {
	svc := newTestAuthService(t, "let-me-in")

	_, err := svc.StaffLogin("wrong-key")
	assert.ErrorIs(t, err, ErrAuthInvalidKey)
}

func TestParseStaffTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t, "let-me-in")

	assert.ErrorIs(t, svc.ParseStaffToken("not-a-token"), ErrAuthInvalidKey)
	assert.ErrorIs(t, svc.ParseStaffToken(""), ErrAuthInvalidKey)
}

func TestParseStaffTokenRejectsForeignSignature(t *testing.T) {
	issuer := newTestAuthService(t, "let-me-in")
	verifier := NewAuthService("different-secret", "unused")

	token, err := issuer.StaffLogin("let-me-in")
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.ParseStaffToken(token), ErrAuthInvalidKey)
}
