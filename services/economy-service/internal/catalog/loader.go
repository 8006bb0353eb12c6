package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

// Bundle is one versioned catalog file.
type Bundle struct {
	Version      string
	Achievements *AchievementCatalog
	Shop         *ShopCatalog
}

type catalogFile struct {
	Version      string               `yaml:"version"`
	Achievements []domain.Achievement `yaml:"achievements"`
	ShopItems    []domain.ShopItem    `yaml:"shop_items"`
}

// Load reads a catalog file. An empty path selects the built-in catalog.
func Load(path string) (*Bundle, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Bundle, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	achievements, err := NewAchievementCatalog(f.Achievements)
	if err != nil {
		return nil, err
	}
	shop, err := NewShopCatalog(f.ShopItems)
	if err != nil {
		return nil, err
	}
	return &Bundle{Version: f.Version, Achievements: achievements, Shop: shop}, nil
}

// Default returns the built-in catalog.
func Default() *Bundle {
	b, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return b
}
