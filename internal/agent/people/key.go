package people

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/people-agent/server/internal/agent/model"
)

// BuildKey fingerprints a turn for the response cache: identity, the literal
// query text and a digest of the canonical context. Any change in any
// context field yields a different key.
func BuildKey(identity, query string, c model.Context) (string, error) {
	canonical, err := c.Canonical()
	if err != nil {
		return "", fmt.Errorf("canonical context: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return identity + ":" + query + ":" + hex.EncodeToString(sum[:]), nil
}
