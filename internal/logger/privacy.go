package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"unicode/utf8"
)

const minHashSaltLength = 32

var hashSalt string

// InitHashSalt loads LOG_HASH_SALT. It panics when the salt is missing or
// shorter than 32 characters, so it must run before the first log line that
// hashes an identifier.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if salt == "" {
		panic("LOG_HASH_SALT is required")
	}
	if len(salt) < minHashSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", minHashSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	data := fmt.Sprintf("%d:%s", userID, hashSalt)
	hash := sha256.Sum256([]byte(data))
	// Return first 8 characters for readability
	return hex.EncodeToString(hash[:])[:8]
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	data := fmt.Sprintf("%d:%s", chatID, hashSalt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// MaskAccount hides all but the last four characters of a payout account.
func MaskAccount(account string) string {
	n := utf8.RuneCountInString(account)
	if n <= 4 {
		return "****"
	}
	runes := []rune(account)
	return "****" + string(runes[n-4:])
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	// For short text, show first few characters
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	// For longer text, show prefix and length
	return fmt.Sprintf("%s...<%d chars>", string([]rune(text)[:3]), len(text))
}
