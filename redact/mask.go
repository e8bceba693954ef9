package redact

import "strings"

// Mask applies the deterministic masking table from spec.md §4.3 for the
// given field type and level.
func Mask(value string, typ Type, level Level) string {
	switch typ {
	case TypeName:
		return maskName(value, level)
	case TypeEmail:
		return maskEmail(value, level)
	case TypePhone:
		return maskPhone(value, level)
	default:
		return maskDefaultString(value, level)
	}
}

func stars(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("*", n)
}

// maskDefaultString implements the "Default string of length n" row.
func maskDefaultString(s string, level Level) string {
	r := []rune(s)
	n := len(r)
	switch level {
	case LevelWeak:
		keep := (n + 1) / 2
		return string(r[:keep]) + stars(n-keep)
	case LevelNormal:
		keep := min(2, n)
		return string(r[:keep]) + stars(n-keep)
	case LevelStrong:
		return stars(n)
	default:
		return s
	}
}

// maskName implements the NAME row.
func maskName(s string, level Level) string {
	r := []rune(s)
	n := len(r)
	switch level {
	case LevelWeak:
		if n == 0 {
			return s
		}
		return string(r[:1]) + stars(n-1)
	case LevelNormal:
		if n <= 2 {
			return s
		}
		return string(r[:1]) + stars(n-2) + string(r[n-1:])
	case LevelStrong:
		return stars(n)
	default:
		return s
	}
}

// maskEmail implements the EMAIL row. Values without an "@" fall back to
// maskDefaultString over the whole value.
func maskEmail(s string, level Level) string {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return maskDefaultString(s, level)
	}
	local, domain := s[:at], s[at+1:]

	dot := strings.LastIndex(domain, ".")
	label, tld := domain, ""
	if dot >= 0 {
		label, tld = domain[:dot], domain[dot:]
	}

	switch level {
	case LevelWeak:
		localOut := local
		if len(local) >= 3 {
			localOut = local[:3] + stars(len(local)-3)
		}
		return localOut + "@" + domain
	case LevelNormal:
		keep := min(2, len(local))
		localOut := local[:keep] + stars(len(local)-keep)
		keepLabel := min(2, len(label))
		labelOut := label[:keepLabel] + stars(len(label)-keepLabel)
		return localOut + "@" + labelOut + tld
	case LevelStrong:
		localOut := stars(len(local))
		labelOut := stars(len(label))
		return localOut + "@" + labelOut + tld
	default:
		return s
	}
}

// maskPhone implements the PHONE row.
func maskPhone(s string, level Level) string {
	switch level {
	case LevelWeak:
		if len(s) < 4 {
			return s
		}
		return maskLastN(s, 4)
	case LevelNormal:
		return maskMiddleN(s, 4)
	case LevelStrong:
		return maskLastN(s, 8)
	default:
		return s
	}
}

func maskLastN(s string, n int) string {
	count := min(n, len(s))
	start := len(s) - count
	return s[:start] + stars(count)
}

func maskMiddleN(s string, n int) string {
	count := min(n, len(s))
	start := (len(s) - count) / 2
	return s[:start] + stars(count) + s[start+count:]
}
