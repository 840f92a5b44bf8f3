package pipeline

import (
	"sort"

	"github.com/ternarybob/demandcast/internal/models"
)

// Split partitions the product universe into k round-robin batches.
// The universe is sorted first so the same inputs always produce the same
// partition. Every product lands in exactly one batch; with fewer products
// than batches the tail batches are empty.
func Split(productCodes []string, k int) []models.ProductBatch {
	if k <= 0 {
		k = 1
	}

	sorted := make([]string, len(productCodes))
	copy(sorted, productCodes)
	sort.Strings(sorted)

	batches := make([]models.ProductBatch, k)
	for i := range batches {
		batches[i] = models.ProductBatch{Index: i}
	}
	for i, code := range sorted {
		idx := i % k
		batches[idx].Products = append(batches[idx].Products, code)
	}
	return batches
}
