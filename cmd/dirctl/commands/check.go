package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

type checkResult struct {
	Server       string `json:"server" yaml:"server"`
	Principal    string `json:"principal" yaml:"principal"`
	BaseDN       string `json:"base_dn" yaml:"base_dn"`
	People       string `json:"people" yaml:"people"`
	PeopleExists bool   `json:"people_exists" yaml:"people_exists"`
	Groups       string `json:"groups" yaml:"groups"`
	GroupsExists bool   `json:"groups_exists" yaml:"groups_exists"`
}

func (r checkResult) table() pairs {
	return pairs{
		{"Server", r.Server},
		{"Principal", r.Principal},
		{"Base DN", r.BaseDN},
		{"People", r.People},
		{"People exists", strconv.FormatBool(r.PeopleExists)},
		{"Groups", r.Groups},
		{"Groups exists", strconv.FormatBool(r.GroupsExists)},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Open a session and report the directory layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result checkResult
			err := a.withSession(cmd.Context(), func(dir *ldapclient.Directory, s *ldapclient.Session) error {
				layout := dir.Layout()
				result = checkResult{
					Server:    s.Server().Address(),
					Principal: s.Principal(),
					BaseDN:    layout.Root().String(),
					People:    layout.People().String(),
					Groups:    layout.Groups().String(),
				}

				var err error
				if result.PeopleExists, err = dir.Exists(cmd.Context(), s, layout.People()); err != nil {
					return err
				}
				result.GroupsExists, err = dir.Exists(cmd.Context(), s, layout.Groups())
				return err
			})
			if err != nil {
				return err
			}

			if !result.PeopleExists || !result.GroupsExists {
				a.log.Warn().Msg("Containers missing, run dirctl install")
			}
			return a.printer.print(result, result.table())
		},
	}
}
