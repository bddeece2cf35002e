package allocation

import (
	"math/big"
	"strings"

	"cloud.google.com/go/civil"
)

// AwaySet holds the days a roommate was not at home.
type AwaySet map[civil.Date]struct{}

// Has reports whether day is marked away.
func (a AwaySet) Has(day civil.Date) bool {
	_, ok := a[day]
	return ok
}

// ParseAway builds an AwaySet from ISO dates (YYYY-MM-DD).
func ParseAway(dates []string) (AwaySet, error) {
	const op = "ParseAway"

	set := make(AwaySet, len(dates))
	for _, raw := range dates {
		d, err := civil.ParseDate(strings.TrimSpace(raw))
		if err != nil || !d.IsValid() {
			return nil, newError(op, ErrInvalidAwayDate, "%q", raw)
		}
		set[d] = struct{}{}
	}
	return set, nil
}

// DayPoints splits one point for day among the roommates at home. When
// nobody is home the point is split among everyone. The points of a day
// always sum to exactly 1.
func DayPoints(away []AwaySet, day civil.Date) []*big.Rat {
	n := len(away)
	points := make([]*big.Rat, n)
	if n == 0 {
		return points
	}

	present := 0
	for _, a := range away {
		if !a.Has(day) {
			present++
		}
	}

	for i, a := range away {
		switch {
		case present == 0:
			points[i] = big.NewRat(1, int64(n))
		case a.Has(day):
			points[i] = new(big.Rat)
		default:
			points[i] = big.NewRat(1, int64(present))
		}
	}
	return points
}

// tally is the presence summary of one window.
type tally struct {
	days        int
	points      []*big.Rat
	daysPresent []int
	daysAway    []int
}

func (t tally) total() *big.Rat {
	sum := new(big.Rat)
	for _, p := range t.points {
		sum.Add(sum, p)
	}
	return sum
}

// countWindow accumulates DayPoints over [from, to]. An empty window
// (to < from) yields zero points.
func countWindow(away []AwaySet, from, to civil.Date) tally {
	n := len(away)
	t := tally{
		points:      make([]*big.Rat, n),
		daysPresent: make([]int, n),
		daysAway:    make([]int, n),
	}
	for i := range t.points {
		t.points[i] = new(big.Rat)
	}

	for day := from; !day.After(to); day = day.AddDays(1) {
		t.days++
		for i, p := range DayPoints(away, day) {
			t.points[i].Add(t.points[i], p)
			if away[i].Has(day) {
				t.daysAway[i]++
			} else {
				t.daysPresent[i]++
			}
		}
	}
	return t
}

func ratFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}
