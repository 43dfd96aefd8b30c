package privacy

import (
	"fmt"
	"strings"
)

// MaskToken masks a delivery token so logs show its shape without
// exposing the device identifier.
// Example: "ExpoPushToken[abc123xyz]" -> "ExpoPushToken[*****3xyz]"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}

	open := strings.Index(token, "[")
	end := strings.LastIndex(token, "]")
	if open > 0 && end == len(token)-1 && end > open {
		inner := token[open+1 : end]
		return token[:open+1] + maskTail(inner, 4) + "]"
	}

	return maskTail(token, 4)
}

// MaskUserID masks a user ID, keeping the last 4 characters.
func MaskUserID(userID string) string {
	return maskTail(userID, 4)
}

// MaskCoordinates reduces a position to city-level precision for logs.
// Roughly 11km resolution; enough to debug matching, not enough to
// locate a person.
func MaskCoordinates(latitude, longitude float64) string {
	return fmt.Sprintf("(%.1f, %.1f)", latitude, longitude)
}

func maskTail(s string, visible int) string {
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
