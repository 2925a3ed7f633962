package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeLocationHashed(t *testing.T) {
	token := EncodeLocation(22.3193, 114.1694, 6, false)
	assert.Len(t, token, 12)

	// Deterministic for the same coarsened coordinate.
	assert.Equal(t, token, EncodeLocation(22.3193, 114.1694, 6, false))
	assert.Equal(t, token, EncodeLocation(22.3210, 114.1710, 6, false))

	// Different cells produce different tokens.
	assert.NotEqual(t, token, EncodeLocation(22.28, 114.16, 6, false))
}

func TestEncodeLocationLengthBounds(t *testing.T) {
	assert.Len(t, EncodeLocation(22.3, 114.1, 0, false), 6)
	assert.Len(t, EncodeLocation(22.3, 114.1, 1, false), 6)
	assert.Len(t, EncodeLocation(22.3, 114.1, 8, false), 16)
	assert.Len(t, EncodeLocation(22.3, 114.1, 100, false), 24)
}

func TestEncodeLocationPrecise(t *testing.T) {
	assert.Equal(t, "22.319300,114.169400", EncodeLocation(22.3193, 114.1694, 6, true))
}
