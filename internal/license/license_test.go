package license

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFormat(t *testing.T) {
	assert.True(t, ValidKeyFormat("QMPDF-ABCDE-12345-Z9Z9Z"))
	assert.False(t, ValidKeyFormat("QMPDF-abcde-12345-Z9Z9Z"))
	assert.False(t, ValidKeyFormat("QMPDF-ABCDE-12345"))
	for i := 0; i < 20; i++ {
		k, err := GenerateKey()
		require.NoError(t, err)
		assert.True(t, ValidKeyFormat(k), k)
	}
}

func TestStaticGate(t *testing.T) {
	assert.True(t, AllowAll.Permitted(FeatureShapes))
	assert.False(t, FreeOnly.Permitted(FeatureShapes))
	assert.True(t, FreeOnly.Permitted(FeatureText))
	assert.True(t, FreeOnly.Permitted(FeatureSignature))
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	purchased := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok, err := IssueToken(secret, "a@example.com", purchased, 24*time.Hour)
	require.NoError(t, err)

	c, err := VerifyToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", c.Email)
	assert.True(t, c.PurchaseDate.Equal(purchased))

	_, err = VerifyToken([]byte("other"), tok)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestTokenExpired(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := IssueToken(secret, "a@example.com", time.Now().Add(-48*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = VerifyToken(secret, tok)
	assert.Equal(t, ErrExpired, err)
}

func TestTokenWrongProduct(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"product": "other"}).SignedString(secret)
	require.NoError(t, err)
	_, err = VerifyToken(secret, tok)
	assert.Equal(t, ErrInvalidProduct, err)
}

func TestPremiumGate(t *testing.T) {
	g := NewPremiumGate(nil)
	assert.False(t, g.Permitted(FeatureHighlight))
	assert.Error(t, g.Activate("nope"))
	require.NoError(t, g.Activate("QMPDF-AAAAA-BBBBB-CCCCC"))
	assert.True(t, g.Permitted(FeatureHighlight))
	g.Deactivate()
	assert.False(t, g.Permitted(FeatureNotes))
}
