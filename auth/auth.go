// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// GenerateAdminKey derives the key that authorizes closing a match.
// Deterministic, so operators can print it from the salt alone.
func GenerateAdminKey(matchID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("close:" + matchID))
	sum := h.Sum(nil)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the match
func ValidateAdminKey(matchID, adminKey, salt string) error {
	expected := GenerateAdminKey(matchID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVoterToken creates a random client-held voter token
func GenerateVoterToken() (string, error) {
	b := make([]byte, 24) // 192 bits
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// HashIP creates a one-way hash of an IP address for privacy
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// 64 bits is plenty for deduplication
	return hex.EncodeToString(sum[:8])
}
