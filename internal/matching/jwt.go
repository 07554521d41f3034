package matching

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/getmockd/intercept/pkg/mock"
)

var errNoBearer = errors.New("no bearer token")

// bearerClaims decodes the claims of the bearer token in the Authorization
// header. The signature is not verified.
func bearerClaims(h mock.Header) (jwt.MapClaims, error) {
	auth := h.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		token, ok = strings.CutPrefix(auth, "bearer ")
	}
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errNoBearer
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// matchClaim compares one claim. Array claims such as aud match when any
// element matches. String expectations may use * patterns.
func matchClaim(expected, actual interface{}) bool {
	if arr, ok := actual.([]interface{}); ok {
		for _, v := range arr {
			if matchClaim(expected, v) {
				return true
			}
		}
		return false
	}
	if es, ok := expected.(string); ok {
		if as, ok := actual.(string); ok {
			return matchValuePattern(es, as)
		}
	}
	return valuesEqual(actual, expected)
}
