package ldap

import (
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// decodeObjectSID converts an Active Directory objectSid to its S-1-5-...
// form. Values already in string form are passed through.
func decodeObjectSID(attr *ldap.EntryAttribute) string {
	if attr == nil {
		return ""
	}

	if len(attr.ByteValues) > 0 && len(attr.ByteValues[0]) > 0 {
		raw := attr.ByteValues[0]
		if strings.HasPrefix(string(raw), "S-") {
			return string(raw)
		}
		if len(raw) < 8 || len(raw) < 8+4*int(raw[1]) {
			return ""
		}
		return objectsid.Decode(raw).String()
	}

	if len(attr.Values) > 0 && strings.HasPrefix(attr.Values[0], "S-") {
		return attr.Values[0]
	}
	return ""
}
