// Package allocation splits shared bills among roommates: fixed parts
// evenly, variable parts by presence points.
package allocation

import (
	"math/big"
	"slices"

	"cloud.google.com/go/civil"

	"splitroom/internal/logger"
	"splitroom/pkg/models"
)

// Allocate splits every expense of the session.
//
// For each expense the window is its own [From, To] (defaulting to the
// session period) clamped into the session period. The variable part is
// split by the roommates' presence points over that window and the fixed
// part evenly. Amounts are whole cents and the shares of an expense always
// add up to its total.
func Allocate(s models.Session) (*models.Allocation, error) {
	const op = "Allocate"

	if err := Validate(s); err != nil {
		return nil, err
	}

	n := len(s.Roommates)
	away := make([]AwaySet, n)
	names := make([]string, n)
	for i, r := range s.Roommates {
		set, err := ParseAway(r.Away)
		if err != nil {
			return nil, newError(op, ErrInvalidAwayDate, "roommate %q: %v", r.Name, err)
		}
		away[i] = set
		names[i] = r.Name
	}

	period := countWindow(away, s.Start, s.End)
	labels := ShortLabels(names)

	result := &models.Allocation{
		Start:       s.Start,
		End:         s.End,
		Days:        period.days,
		TotalPoints: ratFloat(period.total()),
		Roommates:   make([]models.RoommateTotal, n),
		Expenses:    make([]models.ExpenseAllocation, 0, len(s.Expenses)),
	}
	for i, name := range names {
		result.Roommates[i] = models.RoommateTotal{
			Name:        name,
			Label:       labels[i],
			Shares:      make([]models.Share, 0, len(s.Expenses)),
			Points:      ratFloat(period.points[i]),
			DaysPresent: period.daysPresent[i],
			DaysAway:    period.daysAway[i],
		}
	}

	for _, e := range s.Expenses {
		from, to := Window(e, s.Start, s.End)
		w := countWindow(away, from, to)

		fixed := SplitEven(e.Fixed, n)
		variable := SplitByPoints(e.Variable(), w.points)

		result.Expenses = append(result.Expenses, models.ExpenseAllocation{
			ID:          e.ID,
			Name:        e.Name,
			From:        from,
			To:          to,
			Days:        w.days,
			TotalPoints: ratFloat(w.total()),
			Total:       e.Total,
			Fixed:       e.Fixed,
			Variable:    e.Variable(),
		})

		for i := range result.Roommates {
			rt := &result.Roommates[i]
			rt.Shares = append(rt.Shares, models.Share{
				ExpenseID:   e.ID,
				ExpenseName: e.Name,
				Fixed:       fixed[i],
				Variable:    variable[i],
				Total:       fixed[i] + variable[i],
				Points:      ratFloat(w.points[i]),
				DaysPresent: w.daysPresent[i],
			})
			rt.Fixed += fixed[i]
			rt.Variable += variable[i]
			rt.Total += fixed[i] + variable[i]
		}
		result.GrandTotal += e.Total
	}

	log := logger.WithComponent("allocation")
	log.Debug().
		Int("roommates", n).
		Int("expenses", len(s.Expenses)).
		Int("days", period.days).
		Str("grand_total", result.GrandTotal.String()).
		Msg("session allocated")

	return result, nil
}

// Validate checks the session preconditions.
func Validate(s models.Session) error {
	const op = "Validate"

	if len(s.Roommates) == 0 {
		return newError(op, ErrNoRoommates, "")
	}
	if !s.Start.IsValid() || !s.End.IsValid() {
		return newError(op, ErrInvalidPeriod, "start and end dates are required")
	}
	if s.End.Before(s.Start) {
		return newError(op, ErrInvalidPeriod, "%s > %s", s.Start, s.End)
	}
	for _, e := range s.Expenses {
		if e.Total < 0 || e.Fixed < 0 {
			return newError(op, ErrNegativeAmount, "expense %q", e.Name)
		}
		if e.Fixed > e.Total {
			return newError(op, ErrFixedExceedsTotal, "expense %q: fixed %s > total %s", e.Name, e.Fixed, e.Total)
		}
	}
	for _, r := range s.Roommates {
		if _, err := ParseAway(r.Away); err != nil {
			return newError(op, ErrInvalidAwayDate, "roommate %q: %v", r.Name, err)
		}
	}
	return nil
}

// Window returns the expense's effective period: its own bounds, or the
// session's, clamped into [start, end].
func Window(e models.Expense, start, end civil.Date) (civil.Date, civil.Date) {
	from, to := start, end
	if e.From != nil {
		from = clampDate(*e.From, start, end)
	}
	if e.To != nil {
		to = clampDate(*e.To, start, end)
	}
	return from, to
}

func clampDate(d, lo, hi civil.Date) civil.Date {
	if d.Before(lo) {
		return lo
	}
	if d.After(hi) {
		return hi
	}
	return d
}

// SplitEven divides amount into n shares; the remainder cents go to the
// first shares.
func SplitEven(amount models.Cents, n int) []models.Cents {
	shares := make([]models.Cents, n)
	if n == 0 {
		return shares
	}
	base, rem := amount/models.Cents(n), amount%models.Cents(n)
	for i := range shares {
		shares[i] = base
		if models.Cents(i) < rem {
			shares[i]++
		}
	}
	return shares
}

// SplitByPoints divides a non-negative amount in proportion to points with
// the largest remainder method; equal remainders favor earlier shares.
// With no points at all the amount is split evenly.
func SplitByPoints(amount models.Cents, points []*big.Rat) []models.Cents {
	n := len(points)
	shares := make([]models.Cents, n)
	if n == 0 {
		return shares
	}

	weights := points
	sum := new(big.Rat)
	for _, p := range points {
		sum.Add(sum, p)
	}
	if sum.Sign() == 0 {
		weights = make([]*big.Rat, n)
		for i := range weights {
			weights[i] = big.NewRat(1, 1)
		}
		sum.SetInt64(int64(n))
	}

	total := new(big.Rat).SetInt64(int64(amount))
	rems := make([]*big.Rat, n)
	var assigned models.Cents
	for i, w := range weights {
		q := new(big.Rat).Mul(total, w)
		q.Quo(q, sum)
		floor := new(big.Int).Quo(q.Num(), q.Denom())
		shares[i] = models.Cents(floor.Int64())
		rems[i] = q.Sub(q, new(big.Rat).SetInt(floor))
		assigned += shares[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return rems[b].Cmp(rems[a])
	})
	for k := 0; k < int(amount-assigned); k++ {
		shares[order[k%n]]++
	}
	return shares
}
