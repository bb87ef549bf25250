// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// сенегальские мобильные префиксы операторов (Orange, Expresso, Free, Promobile)
var mobilePrefixes = []string{"70", "75", "76", "77", "78"}

// NormalizePhone приводит сенегальский мобильный номер к каноническому виду
// из девяти цифр без кода страны. Допускаются префиксы +221 и 221 и пробелы.
// При некорректном номере ok == false.
func NormalizePhone(phone string) (string, bool) {
	p := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, phone)

	p = strings.TrimPrefix(p, "+")
	if len(p) == 12 && strings.HasPrefix(p, "221") {
		p = p[3:]
	}

	if len(p) != 9 {
		return "", false
	}

	for _, ch := range p {
		if ch < '0' || ch > '9' {
			return "", false
		}
	}

	valid := false
	for _, prefix := range mobilePrefixes {
		if strings.HasPrefix(p, prefix) {
			valid = true
			break
		}
	}
	if !valid {
		return "", false
	}

	return p, true
}

// IsValidPhone проверяет корректность сенегальского мобильного номера.
func IsValidPhone(phone string) bool {
	_, ok := NormalizePhone(phone)
	return ok
}
