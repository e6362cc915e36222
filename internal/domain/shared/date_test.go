package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf(t *testing.T) {
	in := time.Date(2024, time.September, 1, 23, 15, 0, 0, time.FixedZone("AST", 3*3600))
	assert.Equal(t, Date(2024, time.September, 1), DateOf(in))
}

func TestWithinDates(t *testing.T) {
	from := Date(2024, time.June, 1)
	to := Date(2025, time.March, 31)

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"first day", from, true},
		{"last day", to, true},
		{"inside", Date(2024, time.December, 15), true},
		{"before", Date(2024, time.May, 31), false},
		{"after", Date(2025, time.April, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinDates(tt.day, from, to))
		})
	}
}

func TestFilter_Normalized(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalized()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)

	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
}
