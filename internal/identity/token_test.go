package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", "recordvault-test")
	ownerID := id.NewOwnerID()

	token, err := svc.Issue(ownerID, time.Hour)
	require.NoError(t, err)

	ident, err := svc.Verify(token)
	require.NoError(t, err)
	assert.True(t, ident.Authenticated)
	assert.Equal(t, ownerID, ident.ID)
	assert.True(t, ident.Owns(ownerID))
	assert.False(t, ident.Owns(id.NewOwnerID()))
}

func TestVerifyRejections(t *testing.T) {
	svc := NewTokenService("secret", "recordvault-test")
	ownerID := id.NewOwnerID()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, err := NewTokenService("other-secret", "recordvault-test").Issue(ownerID, time.Hour)
		require.NoError(t, err)

		_, verr := svc.Verify(token)
		assert.True(t, dErrors.HasCode(verr, dErrors.CodeAccessDenied))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.Issue(ownerID, -time.Minute)
		require.NoError(t, err)

		_, verr := svc.Verify(token)
		assert.True(t, dErrors.HasCode(verr, dErrors.CodeAccessDenied))
	})
}
