package signing

import "strings"

// disposableDomains is the exact-match blocklist of known throwaway email
// providers. Registrations from these domains are rejected outright.
var disposableDomains = map[string]bool{
	"10minutemail.com":  true,
	"tempmail.org":      true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"yopmail.com":       true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"getnada.com":       true,
	"maildrop.cc":       true,
	"sharklasers.com":   true,
}

// IsDisposableEmail reports whether the address belongs to a known
// throwaway-email provider. The comparison is case-insensitive on the
// domain part.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return disposableDomains[strings.ToLower(email[at+1:])]
}
