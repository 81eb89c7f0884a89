// Package identity implements request identity verification (spec.md §6,
// §C.2): proving an inbound invocation really originated from the
// configured orchestrator, via an EdDSA-signed JWT carried in a dedicated
// header.
package identity

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

const (
	signatureSchemeHeader = "x-restate-signature-scheme"
	signatureSchemeV1     = "v1"
	signatureSchemeNone   = "unsigned"
	jwtV1Header           = "x-restate-jwt-v1"
	identityV1Prefix      = "publickeyv1_"
)

// KeyError describes a problem parsing a configured public key.
type KeyError struct {
	msg string
}

func (e *KeyError) Error() string { return e.msg }

var (
	ErrMissingPrefix = &KeyError{msg: fmt.Sprintf("identity v1 jwt public keys are expected to start with %s", identityV1Prefix)}
)

func errBadLength(n int) error {
	return &KeyError{msg: fmt.Sprintf("decoded key should have length of 32, was %d", n)}
}

// VerifyError describes why verify_identity rejected a request.
type VerifyError struct {
	msg string
	err error
}

func (e *VerifyError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *VerifyError) Unwrap() error { return e.err }

func errMissingHeader(name string) error {
	return &VerifyError{msg: fmt.Sprintf("missing header: %s", name)}
}

func errBadSchemeHeader(got string) error {
	return &VerifyError{msg: fmt.Sprintf("bad %s header, unexpected value %s", signatureSchemeHeader, got)}
}

var errUnsignedRequest = &VerifyError{msg: "got unsigned request, expecting only signed requests matching the configured keys"}

func errInvalidJWT(err error) error {
	return &VerifyError{msg: "invalid JWT", err: err}
}

// HeaderMap is the minimal surface identity needs from an inbound request's
// headers, kept independent of any particular HTTP library.
type HeaderMap interface {
	Get(name string) string
}

// Verifier holds the set of configured public keys an inbound request's
// signature must validate against. An empty Verifier accepts every request
// unverified, matching the original's default-construction behavior used in
// local development.
type Verifier struct {
	keys []ed25519.PublicKey
}

// New constructs a Verifier from "publickeyv1_<base58>"-encoded keys.
func New(keys []string) (*Verifier, error) {
	v := &Verifier{}
	for _, k := range keys {
		pub, err := parseKey(k)
		if err != nil {
			return nil, fmt.Errorf("parse identity key: %w", err)
		}
		v.keys = append(v.keys, pub)
	}
	return v, nil
}

func parseKey(key string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(key, identityV1Prefix) {
		return nil, ErrMissingPrefix
	}
	decoded, err := base58.Decode(key[len(identityV1Prefix):])
	if err != nil {
		return nil, fmt.Errorf("cannot decode the public key with base58: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errBadLength(len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

type claims struct {
	jwt.RegisteredClaims
}

// VerifyIdentity checks that the request carries a valid signature over
// path for at least one of the verifier's configured keys. An empty
// Verifier always succeeds.
func (v *Verifier) VerifyIdentity(headers HeaderMap, path string) error {
	if len(v.keys) == 0 {
		return nil
	}

	scheme := headers.Get(signatureSchemeHeader)
	if scheme == "" {
		return errMissingHeader(signatureSchemeHeader)
	}

	switch scheme {
	case signatureSchemeV1:
		token := headers.Get(jwtV1Header)
		if token == "" {
			return errMissingHeader(jwtV1Header)
		}
		return v.checkV1Keys(token, normalisePath(path))
	case signatureSchemeNone:
		return errUnsignedRequest
	default:
		return errBadSchemeHeader(scheme)
	}
}

func (v *Verifier) checkV1Keys(tokenString, audience string) error {
	var lastErr error
	for _, key := range v.keys {
		_, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
			return key, nil
		},
			jwt.WithValidMethods([]string{"EdDSA"}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errInvalidJWT(lastErr)
}

// normalisePath rewrites a request path down to the audience the signature
// was computed over: the last three path segments when the third-to-last
// segment is "/invoke", the last segment when the path ends in "/discover",
// otherwise the path unchanged.
func normalisePath(path string) string {
	var slashes []int
	for i, c := range path {
		if c == '/' {
			slashes = append(slashes, i)
		}
	}

	if len(slashes) >= 3 && path[slashes[len(slashes)-3]:slashes[len(slashes)-2]] == "/invoke" {
		return path[slashes[len(slashes)-3]:]
	}
	if len(slashes) >= 1 && path[slashes[len(slashes)-1]:] == "/discover" {
		return path[slashes[len(slashes)-1]:]
	}
	return path
}
