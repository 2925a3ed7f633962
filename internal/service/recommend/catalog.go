package recommend

import (
	_ "embed"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"companionhk/internal/provider"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogPlace struct {
	PlaceID   string   `yaml:"place_id"`
	Name      string   `yaml:"name"`
	Address   string   `yaml:"address"`
	Types     []string `yaml:"types"`
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
}

type catalogFile struct {
	Places []catalogPlace `yaml:"places"`
}

var hkCatalog []provider.Place

func init() {
	var parsed catalogFile
	if err := yaml.Unmarshal(catalogYAML, &parsed); err != nil {
		panic(fmt.Sprintf("parse embedded place catalog: %v", err))
	}

	hkCatalog = make([]provider.Place, 0, len(parsed.Places))
	for _, raw := range parsed.Places {
		uri := mapsSearchURI(raw.Name, raw.Address)
		hkCatalog = append(hkCatalog, provider.Place{
			PlaceID:   raw.PlaceID,
			Name:      raw.Name,
			Address:   raw.Address,
			Types:     raw.Types,
			Latitude:  raw.Latitude,
			Longitude: raw.Longitude,
			MapsURI:   &uri,
		})
	}
}

func mapsSearchURI(name, address string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(name+" "+address)
}

// CatalogPlaces returns the built-in Hong Kong fallback catalog.
func CatalogPlaces() []provider.Place {
	return hkCatalog
}
