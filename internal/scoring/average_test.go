package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeAverage(t *testing.T) {
	for _, tc := range []struct {
		name   string
		totals []int
		avg    float64
		ok     bool
	}{
		{name: "empty", totals: nil, ok: false},
		{name: "single", totals: []int{40}, avg: 40, ok: true},
		{name: "two", totals: []int{40, 30}, avg: 35, ok: true},
		{name: "three", totals: []int{40, 30, 50}, avg: 40, ok: true},
		{name: "fractional", totals: []int{7, 8}, avg: 7.5, ok: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			avg, ok := ComputeAverage(tc.totals)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if diff := cmp.Diff(tc.avg, avg); diff != "" {
				t.Errorf("avg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
