package usecase

import (
	"fmt"

	"github.com/naka-gawa/pepy-stats/internal/domain"
)

// ComputeRatios adds the percentage share of each side of every pair to report.
// A pair is skipped when either side has no count or both counts are zero.
func ComputeRatios(pairs []domain.RatioPair, counts map[domain.PackageID]uint64, report *domain.Report) {
	for _, pair := range pairs {
		a, okA := counts[pair.A]
		b, okB := counts[pair.B]
		if !okA || !okB {
			continue
		}
		total := a + b
		if total == 0 {
			continue
		}
		report.Set(domain.RatioKey(pair.A), formatShare(a, total))
		report.Set(domain.RatioKey(pair.B), formatShare(b, total))
	}
}

// share returns count as a percentage of total.
func share(count, total uint64) float64 {
	return 100.0 * float64(count) / float64(total)
}

func formatShare(count, total uint64) string {
	return fmt.Sprintf("%.2f%%", share(count, total))
}
