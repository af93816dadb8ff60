package signing

import (
	"net/mail"
	"strings"
)

// Submission is the raw, untrusted request body for a signing attempt.
// Nothing downstream of the validator ever sees this shape.
type Submission struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Country        string `json:"country"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
	ConsentNews    bool   `json:"consent_news"`
	TurnstileToken string `json:"turnstileToken"`
}

// Validated is a normalized submission produced only by Validate. Email is
// lower-cased, phone reduced to digits and a leading +, names and city
// trimmed with HTML metacharacters stripped.
type Validated struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Country        string
	City           string
	State          string
	PostalCode     string
	ConsentNews    bool
	TurnstileToken string
}

// HasPhone reports whether the submission carries the strong identifier.
func (v Validated) HasPhone() bool { return v.Phone != "" }

// validCountryCodes is the fixed allow-list of 2-letter country codes the
// frontend offers.
var validCountryCodes = map[string]bool{
	"US": true, "CA": true, "GB": true, "AU": true, "DE": true, "FR": true,
	"IT": true, "ES": true, "NL": true, "BE": true, "CH": true, "AT": true,
	"SE": true, "NO": true, "DK": true, "FI": true, "IE": true, "PT": true,
	"GR": true, "PL": true, "CZ": true, "HU": true, "RO": true, "BG": true,
	"HR": true, "SI": true, "SK": true, "LT": true, "LV": true, "EE": true,
	"JP": true, "KR": true, "CN": true, "IN": true, "SG": true, "HK": true,
	"TW": true, "TH": true, "MY": true, "ID": true, "PH": true, "VN": true,
	"BR": true, "AR": true, "CL": true, "CO": true, "MX": true, "PE": true,
	"ZA": true, "EG": true, "NG": true, "KE": true, "MA": true, "TN": true,
	"DZ": true, "IL": true, "AE": true, "SA": true, "TR": true, "RU": true,
	"UA": true, "BY": true, "KZ": true, "UZ": true, "NZ": true, "FJ": true,
	"PG": true,
}

// sanitize trims whitespace and strips HTML metacharacters.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// normalizeEmail lower-cases and syntax-checks an address. The domain must
// contain a dot; bare hostnames are rejected.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	at := strings.LastIndex(email, "@")
	if err != nil || addr.Address != email || at < 1 || !strings.Contains(email[at:], ".") {
		return "", false
	}
	return email, true
}

// normalizePhone reduces a phone number to digits plus an optional leading +.
// Returns "" if fewer than 10 digits remain.
func normalizePhone(raw string) string {
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if digits < 10 {
		return ""
	}
	return b.String()
}

// Validate normalizes and checks a raw submission. On failure it returns a
// ValidationError carrying every offending field.
func Validate(sub Submission) (Validated, *ValidationError) {
	verr := &ValidationError{}
	var v Validated

	v.FirstName = sanitize(sub.FirstName)
	if n := len(v.FirstName); n < 2 || n > 50 {
		verr.add("first_name", "must be 2-50 characters")
	}

	v.LastName = sanitize(sub.LastName)
	if n := len(v.LastName); n < 2 || n > 50 {
		verr.add("last_name", "must be 2-50 characters")
	}

	email := strings.ToLower(strings.TrimSpace(sub.Email))
	phone := normalizePhone(sub.Phone)

	if email == "" && strings.TrimSpace(sub.Phone) == "" {
		verr.add("email", "email or phone is required")
	}
	if email != "" {
		if normalized, ok := normalizeEmail(email); ok {
			v.Email = normalized
		} else {
			verr.add("email", "must be a valid email address")
		}
	}
	if strings.TrimSpace(sub.Phone) != "" {
		if phone == "" {
			verr.add("phone", "must contain at least 10 digits")
		} else {
			v.Phone = phone
		}
	}

	v.Country = strings.ToUpper(strings.TrimSpace(sub.Country))
	if len(v.Country) != 2 {
		verr.add("country", "must be a 2-letter country code")
	} else if !validCountryCodes[v.Country] {
		verr.add("country", "is not a recognized country code")
	}

	v.City = sanitize(sub.City)
	if n := len(v.City); n < 2 || n > 100 {
		verr.add("city", "must be 2-100 characters")
	}

	v.State = sanitize(sub.State)
	if len(v.State) > 50 {
		verr.add("state", "must be at most 50 characters")
	}

	// Postal codes are deliberately free-form: every country has its own
	// scheme and over-validation locks out legitimate signers.
	v.PostalCode = strings.TrimSpace(sub.PostalCode)
	if len(v.PostalCode) > 50 {
		verr.add("postal_code", "must be at most 50 characters")
	}

	v.ConsentNews = sub.ConsentNews
	v.TurnstileToken = strings.TrimSpace(sub.TurnstileToken)

	if len(verr.Fields) > 0 {
		return Validated{}, verr
	}
	return v, nil
}
