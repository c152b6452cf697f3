package logger

import "testing"

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.co", "a@*.co"},
		{"longname@sub.example.org", "l*******@***.*******.org"},
		{"not-an-email", "[invalid-email]"},
		{"", "[invalid-email]"},
	}

	for _, tt := range tests {
		if got := SanitizedEmail(tt.in); got != tt.want {
			t.Errorf("SanitizedEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		rawQuery string
		want     bool
	}{
		{"", false},
		{"page=2&limit=10", false},
		{"password=hunter2", true},
		{"token=abc123", true},
		{"api_key=xyz", true},
		{"email=user%40example.com", true},
		{"AUTH=bearer", true},
	}

	for _, tt := range tests {
		if got := SanitizeQueryString(tt.rawQuery); got != tt.want {
			t.Errorf("SanitizeQueryString(%q) = %v, want %v", tt.rawQuery, got, tt.want)
		}
	}
}
