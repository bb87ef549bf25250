package validation

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
		ok    bool
	}{
		{"plain nine digits", "770000000", "770000000", true},
		{"with country code", "221781234567", "781234567", true},
		{"with plus prefix", "+221770000000", "770000000", true},
		{"with spaces", "77 123 45 67", "771234567", true},
		{"free mobile prefix", "761234567", "761234567", true},
		{"promobile prefix", "751234567", "751234567", true},
		{"expresso prefix", "701234567", "701234567", true},
		{"landline 33 rejected", "331234567", "", false},
		{"too short", "7712345", "", false},
		{"too long", "7712345678", "", false},
		{"letters rejected", "77abc4567", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.phone)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tt.phone, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	if !IsValidPhone("+221771234567") {
		t.Fatalf("expected valid phone")
	}
	if IsValidPhone("123456789") {
		t.Fatalf("expected invalid prefix to be rejected")
	}
}
