package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	k := Key("hashing-v1", "flying over mountains")

	assert.True(t, strings.HasPrefix(k, "reverie:emb:hashing-v1:"))
	assert.NotContains(t, k, "mountains")
	assert.Equal(t, k, Key("hashing-v1", "flying over mountains"))
	assert.NotEqual(t, k, Key("other", "flying over mountains"))
	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
}
