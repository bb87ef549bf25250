package repository

import "testing"

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name", "Paracétamol", "Paracétamol"},
		{"empty", "", ""},
		{"percent alone", "%", `\%`},
		{"percent inside", "z%z", `z\%z`},
		{"underscores", "__zz__", `\_\_zz\_\_`},
		{"backslash", `a\b`, `a\\b`},
		{"backslash before percent", `a\%b`, `a\\\%b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLike(tt.in); got != tt.want {
				t.Fatalf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
