package auth

import (
	"os"
	"strings"
)

// defaultAdminDomains is the built-in allow-list for admin accounts.
var defaultAdminDomains = []string{
	"futuretrendsent.com",
	"futuretrendsent.info",
}

// adminDomains returns the active allow-list, overridable with a
// comma-separated ADMIN_EMAIL_DOMAINS.
func adminDomains() []string {
	raw := os.Getenv("ADMIN_EMAIL_DOMAINS")
	if raw == "" {
		return defaultAdminDomains
	}
	var out []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return defaultAdminDomains
	}
	return out
}

// IsAdminEmail reports whether the email's domain is on the admin
// allow-list. It says nothing about the is_admin flag.
func IsAdminEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range adminDomains() {
		if domain == d {
			return true
		}
	}
	return false
}

// IsAdmin combines both admin conditions. The flag alone is not enough:
// a flagged account on an outside domain is still denied, and a company
// address without the flag is too.
func IsAdmin(email string, flag bool) bool {
	return flag && IsAdminEmail(email)
}
