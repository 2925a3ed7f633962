package rediscache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildShortTermKey(t *testing.T) {
	key := BuildShortTermKey("u1", "companion", "u1-companion-thread")
	assert.Equal(t, "stm:u1:companion:u1-companion-thread", key)
}
