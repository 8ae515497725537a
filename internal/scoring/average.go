package scoring

import "github.com/bigredeye/notmanyjudges/internal/models"

// ComputeAverage returns the arithmetic mean of the given panel totals.
// ok is false when there is nothing to average.
func ComputeAverage(totals []int) (avg float64, ok bool) {
	if len(totals) == 0 {
		return 0, false
	}
	sum := 0
	for _, total := range totals {
		sum += total
	}
	return float64(sum) / float64(len(totals)), true
}

func AverageOf(agg *models.TeamScores) (float64, bool) {
	return ComputeAverage(agg.Totals())
}

func sumScores(scores map[string]int) int {
	total := 0
	for _, v := range scores {
		total += v
	}
	return total
}
