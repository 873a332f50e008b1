package provider

import (
	"errors"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// Entity field names mapped to the schema attribute that carries them.
var (
	userFieldAttributes = map[string]string{
		"uid":         "uid",
		"cn":          "cn",
		"sn":          "sn",
		"mail":        "mail",
		"description": "description",
		"password":    "password",
	}
	groupFieldAttributes = map[string]string{
		"cn":          "name",
		"description": "description",
		"owner":       "owner",
		"member":      "members",
	}
)

// addDirectoryError reports err as diagnostics. Field errors of a
// *ldapclient.ValidationError become attribute errors; anything else is a
// single error with summary.
func addDirectoryError(diags *diag.Diagnostics, summary string, err error, fields map[string]string) {
	var verr *ldapclient.ValidationError
	if !errors.As(err, &verr) {
		diags.AddError(summary, errorDetail(err))
		return
	}

	for _, fe := range verr.Fields {
		attr, ok := fields[fe.Field]
		if !ok {
			diags.AddError(summary, fe.Field+": "+fe.Message)
			continue
		}
		diags.AddAttributeError(path.Root(attr), summary, fe.Message)
	}
}

func errorDetail(err error) string {
	switch ldapclient.GetErrorKind(err) {
	case ldapclient.KindDuplicate:
		return "The entry already exists in the directory: " + err.Error()
	case ldapclient.KindConsistency:
		return "The directory returned inconsistent data: " + err.Error()
	case ldapclient.KindConstraint:
		return "The directory rejected the change: " + err.Error()
	}
	if ldapclient.IsRetryableError(err) {
		return "A transient directory error occurred, retrying may succeed: " + err.Error()
	}
	return "Unexpected directory error: " + err.Error()
}
