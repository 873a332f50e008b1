package ldap

import "strings"

// dnSpecials must be escaped wherever they appear in an attribute value.
const dnSpecials = ",+\"\\<>;"

// EscapeDNValue escapes an attribute value for use in a DN, following
// RFC 4514 section 2.4. Values that need no escaping are returned as is.
func EscapeDNValue(value string) string {
	if !needsEscaping(value) {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 4)

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == 0:
			b.WriteString(`\00`)
			continue
		case strings.IndexByte(dnSpecials, c) >= 0,
			c == '#' && i == 0,
			c == ' ' && (i == 0 || i == len(value)-1):
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscaping(value string) bool {
	if value == "" {
		return false
	}
	if value[0] == '#' || value[0] == ' ' || value[len(value)-1] == ' ' {
		return true
	}
	return strings.ContainsAny(value, dnSpecials+"\x00")
}
