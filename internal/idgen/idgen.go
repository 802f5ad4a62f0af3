// Package idgen generates session and message identifiers.
//
// Session ids are short nanoid strings with a prefix. Message ids are
// monotonic ULIDs so stored messages sort by creation time.
package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// SessionPrefix is prepended to every generated session ID.
const SessionPrefix = "ses-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// SessionID returns a new session ID.
func SessionID() (string, error) {
	return GenerateWithPrefix(SessionPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// MessageID returns a 26-character ULID for the given time. IDs generated
// within the same millisecond are strictly increasing.
func MessageID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}
