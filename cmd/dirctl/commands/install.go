package commands

import (
	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

type installResult struct {
	Created []string `json:"created" yaml:"created"`
	Present []string `json:"present" yaml:"present"`
}

func (r installResult) Headers() []string { return []string{"Container", "Status"} }

func (r installResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Created)+len(r.Present))
	for _, dn := range r.Created {
		rows = append(rows, []string{dn, "created"})
	}
	for _, dn := range r.Present {
		rows = append(rows, []string{dn, "present"})
	}
	return rows
}

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the people and groups containers",
		Long: `Create the people and groups organizational units under the base DN
when they are missing. The base DN entry itself must already exist.

Examples:
  dirctl install --url ldaps://ldap.example.com --base-dn dc=example,dc=com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result installResult
			err := a.withSession(cmd.Context(), func(dir *ldapclient.Directory, s *ldapclient.Session) error {
				created, err := dir.EnsureContainers(cmd.Context(), s)
				if err != nil {
					return err
				}

				result.Created = make([]string, 0, len(created))
				for _, p := range created {
					result.Created = append(result.Created, p.String())
				}
				for _, p := range []*ldapclient.Path{dir.Layout().People(), dir.Layout().Groups()} {
					if !containsPath(created, p) {
						result.Present = append(result.Present, p.String())
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			a.log.Info().Int("created", len(result.Created)).Msg("Directory layout in place")
			return a.printer.print(result, result)
		},
	}
}

func containsPath(paths []*ldapclient.Path, p *ldapclient.Path) bool {
	for _, candidate := range paths {
		if candidate.Equal(p) {
			return true
		}
	}
	return false
}
