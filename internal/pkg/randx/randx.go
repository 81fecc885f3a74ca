/*
Package randx provides functions for generating unique identifiers and validating
externally supplied ones.

It generates standard UUID message IDs for optimistic local inserts and validates
the fixed-length Base62 room codes used to address rooms.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// RoomCodeLength is the fixed length of a room code.
	RoomCodeLength = 6
)

// MessageID generates a standard UUID v4 string to serve as a unique identifier for
// a locally originated message. The service echoes this id back unchanged, which is
// what makes id-based deduplication of the broadcast echo possible.
func MessageID() string {
	return uuid.New().String()
}

// IsValidRoomCode checks if the given string is a valid room code.
// Validity criteria include: length equals RoomCodeLength and all characters belong
// to the Base62Chars set.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
