package rails

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// bearerToken builds the short-lived ES256 JWT the CDP-style APIs expect
// as their Bearer credential. One token covers exactly one request URI.
func bearerToken(keyID, privateKeyPEM, method, host, path string) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": keyID,
		"iss": "cdp",
		"nbf": now.Unix(),
		"exp": now.Add(2 * time.Minute).Unix(),
		"uris": []string{
			fmt.Sprintf("%s %s%s", method, host, path),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID
	token.Header["nonce"] = nonce()
	return token.SignedString(key)
}

func nonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
