package commands

import (
	"github.com/spf13/cobra"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

type memberView struct {
	userView `yaml:",inline"`
	Owner    bool `json:"owner" yaml:"owner"`
}

type groupMembersView struct {
	DN          string       `json:"dn" yaml:"dn"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Owner       string       `json:"owner" yaml:"owner"`
	Members     []memberView `json:"members" yaml:"members"`
}

func (v groupMembersView) Headers() []string {
	return []string{"UID", "Name", "Mail", "Owner", "DN"}
}

func (v groupMembersView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Members))
	for _, m := range v.Members {
		owner := ""
		if m.Owner {
			owner = "yes"
		}
		rows = append(rows, []string{m.UID, m.Name, emptyOr(m.Mail, "-"), emptyOr(owner, "-"), m.DN})
	}
	return rows
}

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Look up groups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "members <name>",
		Short: "List the members of a group",
		Long: `List the members of the group with the given name. Every member
reference is resolved with its own lookup.

Examples:
  dirctl group members developers
  dirctl group members developers -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view groupMembersView
			err := a.withSession(cmd.Context(), func(dir *ldapclient.Directory, s *ldapclient.Session) error {
				group, err := dir.FindGroupByName(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}

				members, err := group.GetMembers(cmd.Context(), dir.Bind(s))
				if err != nil {
					return err
				}

				view = groupMembersView{
					DN:          group.DN(),
					Name:        group.Name(),
					Description: group.Description(),
					Owner:       group.Owner(),
					Members:     make([]memberView, 0, len(members)),
				}
				// An unparseable owner matches no member.
				owner, _ := ldapclient.ParsePath(group.Owner())
				for _, m := range members {
					view.Members = append(view.Members, memberView{
						userView: newUserView(m),
						Owner:    m.Path().Equal(owner),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}

			a.log.Debug().Int("members", len(view.Members)).Str("group", view.DN).Msg("Resolved group members")
			return a.printer.print(view, view)
		},
	})

	return cmd
}
