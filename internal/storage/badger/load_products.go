package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// productSeedFile is the on-disk shape of a product seed file. One file may
// carry any number of products.
type productSeedFile struct {
	Products []models.ProductRecord `toml:"products"`
}

// LoadProductSeeds reads every .toml file in dir and upserts the product
// records it finds. Returns the number of products loaded. A missing
// directory is not an error; the universe is simply empty.
func LoadProductSeeds(ctx context.Context, storage interfaces.ProductStorage, dir string, logger arbor.ILogger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("dir", dir).Msg("Product seed directory not found")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read seed directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("failed to read seed file %s: %w", path, err)
		}

		var seed productSeedFile
		if err := toml.Unmarshal(data, &seed); err != nil {
			return loaded, fmt.Errorf("failed to parse seed file %s: %w", path, err)
		}

		for i := range seed.Products {
			product := &seed.Products[i]
			if product.Code == "" {
				logger.Warn().Str("file", entry.Name()).Msg("Skipping product with empty code")
				continue
			}
			if err := storage.SaveProduct(ctx, product); err != nil {
				return loaded, err
			}
			loaded++
		}
	}

	logger.Info().Int("products", loaded).Str("dir", dir).Msg("Product seeds loaded")
	return loaded, nil
}
