// Package cache holds the query-embedding cache adapters and the key scheme
// they share.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for a text embedded by model. The text is
// hashed so keys stay short and do not leak query content.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "reverie:emb:" + model + ":" + hex.EncodeToString(sum[:16])
}
