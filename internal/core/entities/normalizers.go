package entities

import (
	"strings"
	"unicode"
)

// cityAliases maps common abbreviations and spellings to canonical city names.
var cityAliases = map[string]string{
	"khi":        "Karachi",
	"karachi":    "Karachi",
	"lhr":        "Lahore",
	"lahore":     "Lahore",
	"isb":        "Islamabad",
	"islamabad":  "Islamabad",
	"rwp":        "Rawalpindi",
	"pindi":      "Rawalpindi",
	"rawalpindi": "Rawalpindi",
	"pew":        "Peshawar",
	"peshawar":   "Peshawar",
	"qta":        "Quetta",
	"quetta":     "Quetta",
	"mux":        "Multan",
	"multan":     "Multan",
	"fsd":        "Faisalabad",
	"lyallpur":   "Faisalabad",
	"faisalabad": "Faisalabad",
	"hyd":        "Hyderabad",
	"hyderabad":  "Hyderabad",
	"skt":        "Sialkot",
	"sialkot":    "Sialkot",
}

// NormalizeCity converts known abbreviations to canonical city names.
// Unknown values are returned trimmed.
func NormalizeCity(s string) string {
	s = strings.TrimSpace(s)
	if city, ok := cityAliases[strings.ToLower(s)]; ok {
		return city
	}
	return s
}

// NormalizeStatus lowercases a status and joins words with underscores,
// so "In Progress" and "in-progress" both become "in_progress".
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone formats Pakistani mobile numbers as +92 3XX XXXXXXX.
// Numbers in any other shape are returned trimmed.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "03"):
		digits = digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "923"):
		digits = digits[2:]
	case len(digits) == 14 && strings.HasPrefix(digits, "00923"):
		digits = digits[4:]
	default:
		return s
	}
	return "+92 " + digits[:3] + " " + digits[3:]
}

// splitList accepts either a JSON array of strings or one comma separated
// string, and returns trimmed non-empty items.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
