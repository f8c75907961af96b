package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyz-asif/chatter/internal/client"
)

// NewFeedCmd creates the feed command.
func NewFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the news feed or a record feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(cmd, true)
			if err != nil {
				return err
			}

			record, _ := cmd.Flags().GetString("record")
			opts := client.FeedOptions{}
			opts.PageToken, _ = cmd.Flags().GetString("page-token")
			opts.PageSize, _ = cmd.Flags().GetInt("page-size")
			opts.SortOrder, _ = cmd.Flags().GetString("sort")
			opts.SearchTerm, _ = cmd.Flags().GetString("search")

			var page *client.FeedPage
			if record != "" {
				page, err = c.RecordFeed(cmd.Context(), record, opts)
			} else {
				page, err = c.NewsFeed(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			printFeed(cmd.OutOrStdout(), page)
			return nil
		},
	}

	cmd.Flags().String("record", "", "show the feed of this record instead of the news feed")
	cmd.Flags().String("page-token", "", "page token from a previous page")
	cmd.Flags().Int("page-size", 0, "elements per page")
	cmd.Flags().String("sort", "", "CreatedDateDesc or LastModifiedDateDesc")
	cmd.Flags().String("search", "", "only elements whose text contains this term")
	return cmd
}

func printFeed(w io.Writer, page *client.FeedPage) {
	if len(page.Elements) == 0 {
		fmt.Fprintln(w, "No posts.")
		return
	}
	for _, e := range page.Elements {
		fmt.Fprintf(w, "[%s] %s  %s\n", e.ID, e.Actor.Name, e.CreatedDate.Local().Format("Jan 2 15:04"))
		for _, line := range strings.Split(e.Body.Text, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		if n := len(e.Capabilities.Files.Items); n > 0 {
			fmt.Fprintf(w, "    (%d attachment(s))\n", n)
		}
		fmt.Fprintf(w, "    %d like(s), %d interaction(s)\n", e.Capabilities.ChatterLikes.Total, e.Capabilities.Interactions.Count)
	}
	if page.NextPageToken != nil {
		fmt.Fprintf(w, "\nMore: --page-token %s\n", *page.NextPageToken)
	}
}
