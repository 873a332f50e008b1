package commands

import (
	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

type userView struct {
	DN          string `json:"dn" yaml:"dn"`
	UID         string `json:"uid" yaml:"uid"`
	Name        string `json:"name" yaml:"name"`
	CN          string `json:"cn" yaml:"cn"`
	SN          string `json:"sn" yaml:"sn"`
	Mail        string `json:"mail,omitempty" yaml:"mail,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	SID         string `json:"sid,omitempty" yaml:"sid,omitempty"`
}

func newUserView(u *ldapclient.User) userView {
	return userView{
		DN:          u.DN(),
		UID:         u.UID(),
		Name:        u.Name(),
		CN:          u.CN(),
		SN:          u.SN(),
		Mail:        u.Mail(),
		Description: u.Description(),
		SID:         u.ObjectSID(),
	}
}

func (v userView) table() pairs {
	return pairs{
		{"DN", v.DN},
		{"UID", v.UID},
		{"Name", v.Name},
		{"CN", v.CN},
		{"SN", v.SN},
		{"Mail", v.Mail},
		{"Description", v.Description},
	}
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Look up users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <uid>",
		Short: "Show a user",
		Long: `Show the attributes of the user with the given uid.

Examples:
  dirctl user show jdoe
  dirctl user show jdoe -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view userView
			err := a.withSession(cmd.Context(), func(dir *ldapclient.Directory, s *ldapclient.Session) error {
				user, err := dir.FindUserByUID(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}
				view = newUserView(user)
				return nil
			})
			if err != nil {
				return err
			}
			return a.printer.print(view, view.table())
		},
	})

	return cmd
}
