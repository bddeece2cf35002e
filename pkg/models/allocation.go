package models

import "cloud.google.com/go/civil"

// Share is one roommate's part of one expense.
type Share struct {
	ExpenseID   UtilityType `json:"expenseId"`
	ExpenseName string      `json:"expenseName"`
	Fixed       Cents       `json:"fixed"`
	Variable    Cents       `json:"variable"`
	Total       Cents       `json:"total"`
	Points      float64     `json:"points"`
	DaysPresent int         `json:"daysPresent"`
}

// RoommateTotal aggregates every share of a roommate.
type RoommateTotal struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Shares   []Share `json:"shares"`
	Fixed    Cents   `json:"fixed"`
	Variable Cents   `json:"variable"`
	Total    Cents   `json:"total"`

	// Points, DaysPresent and DaysAway cover the whole session period.
	Points      float64 `json:"points"`
	DaysPresent int     `json:"daysPresent"`
	DaysAway    int     `json:"daysAway"`
}

// ExpenseAllocation records the effective window an expense was split over.
type ExpenseAllocation struct {
	ID          UtilityType `json:"id"`
	Name        string      `json:"name"`
	From        civil.Date  `json:"from"`
	To          civil.Date  `json:"to"`
	Days        int         `json:"days"`
	TotalPoints float64     `json:"totalPoints"`
	Total       Cents       `json:"total"`
	Fixed       Cents       `json:"fixed"`
	Variable    Cents       `json:"variable"`
}

// Allocation is the result of splitting a session.
type Allocation struct {
	Start       civil.Date          `json:"start"`
	End         civil.Date          `json:"end"`
	Days        int                 `json:"days"`
	TotalPoints float64             `json:"totalPoints"`
	Roommates   []RoommateTotal     `json:"roommates"`
	Expenses    []ExpenseAllocation `json:"expenses"`
	GrandTotal  Cents               `json:"grandTotal"`
	Benchmark   *BenchmarkReport    `json:"benchmark,omitempty"`
}

// BenchmarkLine compares one utility against the national average.
type BenchmarkLine struct {
	Type             UtilityType `json:"type"`
	UserMonthly      float64     `json:"userMonthly"`
	BenchMonthly     float64     `json:"benchMonthly"`
	BenchConsumption float64     `json:"benchConsumption"`
	DiffPct          float64     `json:"diffPct"`
}

// BenchmarkReport is the household comparison against Portuguese averages.
type BenchmarkReport struct {
	CountryCode       string          `json:"countryCode"`
	DataYear          int             `json:"dataYear"`
	Sources           string          `json:"sources"`
	HouseholdSize     int             `json:"householdSize"`
	TypesPresent      []UtilityType   `json:"typesPresent"`
	UserMonthlyTotal  float64         `json:"userMonthlyTotal"`
	BenchMonthlyTotal float64         `json:"benchMonthlyTotal"`
	DiffPct           float64         `json:"diffPct"`
	Score             int             `json:"score"`
	Breakdown         []BenchmarkLine `json:"breakdown"`
}
