package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/app"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/jellyfin"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newUsersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the server's users and whether they are counted",
		Long: `List the users of the media server. Only enabled users with remote
access count towards per-user statistics and rankings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			users, err := app.NewClient(cfg).GetUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("unable to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			t := ui.NewTable("User", "Admin", "Disabled", "Remote", "Counted")
			counted := 0
			for _, u := range users {
				admin, disabled, remote := policy(u)
				active := remote && !disabled
				if active {
					counted++
				}
				t.AddRow(u.Name, yesNo(admin), yesNo(disabled), yesNo(remote), yesNo(active))
			}
			t.Render(out)
			fmt.Fprintf(out, "%s of %s users counted\n", strconv.Itoa(counted), strconv.Itoa(len(users)))
			return nil
		},
	}
}

func policy(u jellyfin.User) (admin, disabled, remote bool) {
	if u.Policy == nil {
		return false, false, false
	}
	return u.Policy.IsAdministrator, u.Policy.IsDisabled, u.Policy.EnableRemoteAccess
}

func yesNo(b bool) string {
	if b {
		return ui.Success("yes")
	}
	return ui.Dim("no")
}
