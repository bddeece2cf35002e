package extract

import (
	"regexp"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// Defaults applied to zero NearestOptions fields.
const (
	DefaultWindow = 200
	DefaultMax    = models.Cents(15000)
	DefaultMin    = models.Cents(50)

	// nearTolerance is the distance under which two amounts are the same value.
	nearTolerance = models.Cents(5)
)

// NearestOptions bounds a NearestValue search.
type NearestOptions struct {
	// Window is how many bytes after each keyword occurrence are scanned.
	Window int
	Max    models.Cents
	Min    models.Cents
	// Blacklist holds values that are never charges (kVA ratings, ...).
	Blacklist []models.Cents
}

var currencyShaped = regexp.MustCompile(`\d{1,3}(?:[ .]\d{3})*(?:[.,]\d{2})`)

// NearestValue scans every case-insensitive occurrence of keyword and the
// window after it, and returns the currency-shaped value closest to its
// keyword. Values within 0,05 of total or of a blacklist entry, and values
// outside [Min, Max], are skipped. Ties go to the earliest occurrence.
func NearestValue(text, keyword string, total *models.Cents, opts NearestOptions) (models.Cents, bool) {
	if keyword == "" {
		return 0, false
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Max == 0 {
		opts.Max = DefaultMax
	}
	if opts.Min == 0 {
		opts.Min = DefaultMin
	}

	keyRe, err := regexp.Compile("(?i)" + regexp.QuoteMeta(keyword))
	if err != nil {
		return 0, false
	}

	var (
		best     models.Cents
		bestDist = -1
	)
	for _, loc := range keyRe.FindAllStringIndex(text, -1) {
		end := min(len(text), loc[1]+opts.Window)
		window := text[loc[1]:end]

		for _, nm := range currencyShaped.FindAllStringIndex(window, -1) {
			v, ok := normalize.ParseMoney(window[nm[0]:nm[1]])
			if !ok {
				continue
			}
			if total != nil && near(v, *total) {
				continue
			}
			if v > opts.Max || v < opts.Min {
				continue
			}
			if blacklisted(v, opts.Blacklist) {
				continue
			}
			if bestDist < 0 || nm[0] < bestDist {
				best, bestDist = v, nm[0]
			}
		}
	}
	return best, bestDist >= 0
}

func near(a, b models.Cents) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < nearTolerance
}

func blacklisted(v models.Cents, list []models.Cents) bool {
	for _, b := range list {
		if near(v, b) {
			return true
		}
	}
	return false
}
