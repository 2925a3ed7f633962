package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EncodeLocation reduces a coordinate to a storable token. By default the
// coordinate is coarsened to two decimal places (roughly 1km) and hashed;
// precise mode stores the raw coordinate instead.
func EncodeLocation(lat, lng float64, precision int, storePrecise bool) string {
	if storePrecise {
		return fmt.Sprintf("%.6f,%.6f", lat, lng)
	}

	digest := sha256.Sum256([]byte(fmt.Sprintf("lat%.2f,lng%.2f", lat, lng)))
	encoded := hex.EncodeToString(digest[:])

	length := precision * 2
	if length < 6 {
		length = 6
	}
	if length > 24 {
		length = 24
	}
	return encoded[:length]
}
