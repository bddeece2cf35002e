package models

import "cloud.google.com/go/civil"

// Expense is one bill to be split. Variable = Total - Fixed.
type Expense struct {
	ID    UtilityType `json:"id" yaml:"id"`
	Name  string      `json:"name" yaml:"name"`
	Icon  string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Total Cents       `json:"total" yaml:"total"`
	Fixed Cents       `json:"fixed" yaml:"fixed"`
	// From and To bound the expense's own billing sub-period; nil means the session period.
	From *civil.Date `json:"from,omitempty" yaml:"from,omitempty"`
	To   *civil.Date `json:"to,omitempty" yaml:"to,omitempty"`
}

// Variable returns the consumption part of the expense.
func (e Expense) Variable() Cents {
	return e.Total - e.Fixed
}

// Roommate is a participant and the set of days they were away.
// Any day of the period not listed in Away counts as present.
type Roommate struct {
	Name string   `json:"name" yaml:"name"`
	Away []string `json:"away,omitempty" yaml:"away,omitempty"`
}

// Session is the serializable split input: roommates, period and expenses.
type Session struct {
	Roommates []Roommate `json:"roommates" yaml:"roommates"`
	Start     civil.Date `json:"start" yaml:"start"`
	End       civil.Date `json:"end" yaml:"end"`
	Expenses  []Expense  `json:"expenses" yaml:"expenses"`
}
