// Package command implements the chatter CLI
package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xyz-asif/chatter/internal/client"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
)

const AppName = "chatter"

const defaultAPIURL = "http://localhost:8080/api/v1"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Chatter - post, comment and mention from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger.SetGlobalOutput(cmd.ErrOrStderr())
			if verbose {
				logger.SetGlobalLevel(logger.DEBUG)
			} else {
				logger.SetGlobalLevel(logger.WARN)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("api", envOr("CHATTER_API_URL", defaultAPIURL), "API base url")
	cmd.PersistentFlags().String("token", os.Getenv("CHATTER_TOKEN"), "access token")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")

	cmd.AddCommand(
		NewLoginCmd(),
		NewFeedCmd(),
		NewComposeCmd(),
		NewNotificationsCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// apiClient builds a client from the persistent flags. Commands that need a
// signed-in user pass requireToken.
func apiClient(cmd *cobra.Command, requireToken bool) (*client.Client, error) {
	apiURL, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if requireToken && token == "" {
		return nil, fmt.Errorf("not signed in: run '%s login <email>' and set CHATTER_TOKEN", AppName)
	}
	return client.New(apiURL, token)
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
