package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xyz-asif/chatter/internal/client"
)

// NewNotificationsCmd creates the notifications command.
func NewNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "List recent notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(cmd, true)
			if err != nil {
				return err
			}

			unseen, err := c.UnseenCount(cmd.Context())
			if err != nil {
				return err
			}
			pages, _ := cmd.Flags().GetInt("pages")
			pager := client.NewNotificationPager(c)
			var shown []client.Notification
			for i := 0; i < pages; i++ {
				batch, err := pager.Next(cmd.Context())
				if err != nil {
					return err
				}
				if len(batch) == 0 {
					break
				}
				shown = append(shown, batch...)
			}

			readAll, _ := cmd.Flags().GetBool("read-all")
			if readAll {
				if err := c.MarkAllRead(cmd.Context()); err != nil {
					return err
				}
			}

			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"unseenCount":   unseen,
					"notifications": shown,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d unseen\n", unseen)
			for _, n := range shown {
				marker := " "
				if !n.IsRead {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s %s: %s\n", marker, n.Actor.Name, n.Type, n.Preview)
			}
			return nil
		},
	}

	cmd.Flags().Int("pages", 1, fmt.Sprintf("screens of %d notifications to show", client.NotificationsShown))
	cmd.Flags().Bool("read-all", false, "mark every notification read after listing")
	return cmd
}
