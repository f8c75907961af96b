package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with the development login",
		Long:  "Sign in without Google. Only available when the server is not running in production.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(cmd, false)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			token, err := c.DevLogin(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}

			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"accessToken": token})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export CHATTER_TOKEN=%s\n", token)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name for a new account")
	return cmd
}
