package auth

import "testing"

func TestIsAdminEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"ops@futuretrendsent.com", true},
		{"ops@futuretrendsent.info", true},
		{"OPS@FUTURETRENDSENT.COM", true},
		{"ops@futuretrendsent.org", false},
		{"ops@gmail.com", false},
		{"ops@sub.futuretrendsent.com", false},
		{"futuretrendsent.com", false},
		{"", false},
		{"ops@", false},
	}
	for _, tc := range cases {
		if got := IsAdminEmail(tc.email); got != tc.want {
			t.Errorf("IsAdminEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestIsAdminRequiresBothConditions(t *testing.T) {
	if !IsAdmin("ops@futuretrendsent.com", true) {
		t.Error("flag + company domain should be admin")
	}
	// The flag alone is not enough.
	if IsAdmin("ops@gmail.com", true) {
		t.Error("flagged outside-domain account must be denied")
	}
	// The domain alone is not enough either.
	if IsAdmin("ops@futuretrendsent.com", false) {
		t.Error("unflagged company account must be denied")
	}
	if IsAdmin("ops@gmail.com", false) {
		t.Error("neither condition must be denied")
	}
}

func TestAdminDomainsOverride(t *testing.T) {
	t.Setenv("ADMIN_EMAIL_DOMAINS", "example.org, Example.COM")

	if !IsAdminEmail("root@example.org") {
		t.Error("overridden domain should be accepted")
	}
	if !IsAdminEmail("root@example.com") {
		t.Error("override list is case insensitive")
	}
	if IsAdminEmail("ops@futuretrendsent.com") {
		t.Error("defaults do not apply when the override is set")
	}
}
