package identity

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalisePath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/invoke/foo.bar/baz", "/invoke/foo.bar/baz"},
		{"/discover", "/discover"},
		{"/some/prefix/invoke/foo.bar/baz", "/invoke/foo.bar/baz"},
		{"/some/prefix/discover", "/discover"},
		{"", ""},
		{"/", "/"},
		{"/foo", "/foo"},
		{"/foo/bar", "/foo/bar"},
		{"/foo/bar/baz", "/foo/bar/baz"},
		{"invoke/foo.bar/baz", "invoke/foo.bar/baz"},
		{"/a/b/invoke/foo/bar/", "/a/b/invoke/foo/bar/"},
		{"/xinvoke/foo/bar", "/xinvoke/foo/bar"},
		{"/a/invoke/bar", "/a/invoke/bar"},
		{"/a/b/c/discover", "/discover"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, normalisePath(c.path), "path=%q", c.path)
	}
}

type headerMap map[string]string

func (h headerMap) Get(name string) string { return h[name] }

func mockTokenAndKey(t *testing.T, audience string) (token string, key string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := tok.SignedString(priv)
	require.NoError(t, err)

	kid := identityV1Prefix + base58.Encode(pub)
	return signed, kid
}

func TestVerifyIdentityRoundtrip(t *testing.T) {
	token, key := mockTokenAndKey(t, "/invoke/foo")

	v, err := New([]string{key})
	require.NoError(t, err)

	headers := headerMap{
		signatureSchemeHeader: signatureSchemeV1,
		jwtV1Header:           token,
	}
	assert.NoError(t, v.VerifyIdentity(headers, "/invoke/foo"))
}

func TestVerifyIdentityBadKey(t *testing.T) {
	token, _ := mockTokenAndKey(t, "/invoke/foo")

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherKey := identityV1Prefix + base58.Encode(otherPub)

	v, err := New([]string{otherKey})
	require.NoError(t, err)

	headers := headerMap{
		signatureSchemeHeader: signatureSchemeV1,
		jwtV1Header:           token,
	}
	assert.Error(t, v.VerifyIdentity(headers, "/invoke/foo"))
}

func TestVerifyIdentityUnsigned(t *testing.T) {
	_, key := mockTokenAndKey(t, "/invoke/foo")
	v, err := New([]string{key})
	require.NoError(t, err)

	headers := headerMap{signatureSchemeHeader: signatureSchemeNone}
	err = v.VerifyIdentity(headers, "/invoke/foo")
	assert.ErrorIs(t, err, errUnsignedRequest)
}

func TestVerifyIdentityNoKeysConfigured(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)
	assert.NoError(t, v.VerifyIdentity(headerMap{}, "/invoke/foo"))
}

func TestParseKeyRejectsMissingPrefix(t *testing.T) {
	_, err := New([]string{"notaprefix_abc"})
	require.Error(t, err)
}

func TestParseKeyRejectsWrongLength(t *testing.T) {
	short := identityV1Prefix + base58.Encode([]byte("short"))
	_, err := New([]string{short})
	require.Error(t, err)
}
