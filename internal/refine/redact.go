package refine

import (
	"regexp"
	"strings"
)

const (
	RedactedEmail   = "[REDACTED_EMAIL]"
	RedactedIBAN    = "[REDACTED_IBAN]"
	RedactedPhone   = "[REDACTED_PHONE]"
	RedactedNIF     = "[REDACTED_NIF]"
	RedactedID      = "[REDACTED_ID]"
	RedactedAddress = "[REDACTED_ADDRESS_LINE]"
)

var (
	emailPattern   = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	ibanPattern    = regexp.MustCompile(`(?i)\bPT\d{23}\b`)
	nifPattern     = regexp.MustCompile(`\b\d{3}\s?\d{3}\s?\d{3}\b`)
	phonePattern   = regexp.MustCompile(`(?:\+|\b)\d[\d \t-]{7,}\d\b`)
	labeledID      = regexp.MustCompile(`(?i)\b(N[ºo]\s*Cliente|NIF|Contribuinte|NIPC|CPE|CUI|Contrato|Conta|Código\s*de\s*Cliente)\b\s*[:\-]?\s*(\S+)`)
	postalCode     = regexp.MustCompile(`\b\d{4}-\d{3}\b`)
	addressMarkers = []string{"morada", "endereço", "endereco", "rua ", "avenida", "av.", "travessa", "estrada"}
)

// Redactor strips personal data from bill text before it leaves the
// process. Provider NIFs on the allowlist are kept.
type Redactor struct {
	allowed map[string]struct{}
}

// NewRedactor builds a Redactor; NIFs may contain spaces.
func NewRedactor(allowedNIFs []string) *Redactor {
	allowed := make(map[string]struct{}, len(allowedNIFs))
	for _, n := range allowedNIFs {
		if d := digits(n); d != "" {
			allowed[d] = struct{}{}
		}
	}
	return &Redactor{allowed: allowed}
}

// Redact is shorthand for NewRedactor(allowedNIFs).Redact(text).
func Redact(text string, allowedNIFs []string) string {
	return NewRedactor(allowedNIFs).Redact(text)
}

// Redact replaces emails, IBANs, NIFs, phone numbers, labeled customer
// identifiers and address lines with placeholder tokens.
func (r *Redactor) Redact(text string) string {
	t := emailPattern.ReplaceAllString(text, RedactedEmail)
	t = ibanPattern.ReplaceAllString(t, RedactedIBAN)

	// NIFs go before phones, which would otherwise swallow every 9-digit run.
	t = nifPattern.ReplaceAllStringFunc(t, func(m string) string {
		if r.isAllowed(m) {
			return m
		}
		return RedactedNIF
	})
	t = phonePattern.ReplaceAllStringFunc(t, func(m string) string {
		if r.isAllowed(m) {
			return m
		}
		return RedactedPhone
	})

	t = labeledID.ReplaceAllStringFunc(t, func(m string) string {
		sub := labeledID.FindStringSubmatch(m)
		if r.isAllowed(sub[2]) || strings.HasPrefix(sub[2], "[REDACTED_") {
			return m
		}
		return sub[1] + ": " + RedactedID
	})

	lines := strings.Split(t, "\n")
	for i, line := range lines {
		if isAddressLine(line) {
			lines[i] = RedactedAddress
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Redactor) isAllowed(s string) bool {
	_, ok := r.allowed[digits(s)]
	return ok
}

func isAddressLine(line string) bool {
	l := strings.ToLower(line)
	for _, m := range addressMarkers {
		if strings.Contains(l, m) {
			return true
		}
	}
	return postalCode.MatchString(l)
}

func digits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
