package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyz-asif/chatter/internal/client"
	"github.com/xyz-asif/chatter/internal/composer"
	"github.com/xyz-asif/chatter/internal/mentions"
	"github.com/xyz-asif/chatter/internal/pkg/datauri"
)

const composeHelp = `Type lines of text. End a line with @name to look up a user.
  /pick N        insert suggestion N as a mention
  /attach PATH   stage a file
  /files         list staged files
  /remove ID     unstage a file
  /text          show the message
  /send          upload files and save
  /clear         start over
  /quit          leave without saving`

// NewComposeCmd creates the compose command.
func NewComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Write a post or comment with mentions and attachments",
		Long:  "Interactive composer. By default it writes a new post on your own profile.\n\n" + composeHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(cmd, true)
			if err != nil {
				return err
			}

			cfg, err := composeConfig(cmd, c)
			if err != nil {
				return err
			}

			session, err := composer.New(cfg, c, c, c)
			if err != nil {
				return err
			}
			defer session.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Composing %s. /help for commands.\n", cfg.Mode)
			return runCompose(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("subject", "", "record to post on (default: your profile)")
	cmd.Flags().String("edit-post", "", "feed element id to edit")
	cmd.Flags().String("comment-on", "", "feed element id to comment on")
	cmd.Flags().String("edit-comment", "", "comment id to edit (requires --element)")
	cmd.Flags().String("element", "", "feed element the edited comment belongs to")
	return cmd
}

func composeConfig(cmd *cobra.Command, c *client.Client) (composer.Config, error) {
	ctx := cmd.Context()
	subject, _ := cmd.Flags().GetString("subject")
	editPost, _ := cmd.Flags().GetString("edit-post")
	commentOn, _ := cmd.Flags().GetString("comment-on")
	editComment, _ := cmd.Flags().GetString("edit-comment")
	element, _ := cmd.Flags().GetString("element")

	switch {
	case editPost != "":
		draft, err := c.PostDraft(ctx, editPost)
		if err != nil {
			return composer.Config{}, err
		}
		return composer.Config{Mode: composer.ModeEditPost, TargetID: editPost, Body: draft.Body, Attachments: draft.Attachments}, nil
	case commentOn != "":
		return composer.Config{Mode: composer.ModeNewComment, TargetID: commentOn}, nil
	case editComment != "":
		if element == "" {
			return composer.Config{}, errors.New("--edit-comment requires --element")
		}
		draft, err := c.CommentDraft(ctx, element, editComment)
		if err != nil {
			return composer.Config{}, err
		}
		return composer.Config{Mode: composer.ModeEditComment, TargetID: editComment, Body: draft.Body}, nil
	default:
		if subject == "" {
			me, err := c.Me(ctx)
			if err != nil {
				return composer.Config{}, err
			}
			subject = me
		}
		return composer.Config{Mode: composer.ModeNewPost, TargetID: subject}, nil
	}
}

// runCompose drives a session from line input until the message is saved or
// the input ends.
func runCompose(ctx context.Context, session *composer.Session, in io.Reader, out io.Writer) error {
	var candidates []mentions.Candidate
	if text := session.Text(); text != "" {
		fmt.Fprintf(out, "Current text:\n%s\n", text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()

		if !strings.HasPrefix(line, "/") {
			text := session.Text()
			if text != "" {
				text += "\n"
			}
			view := session.Enter(ctx, text+line)
			candidates = view.Candidates
			for i, c := range candidates {
				fmt.Fprintf(out, "  %d. %s\n", i+1, c.Label)
			}
			continue
		}

		command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch command {
		case "/help":
			fmt.Fprintln(out, composeHelp)
		case "/pick":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 || n > len(candidates) {
				fmt.Fprintln(out, "no such suggestion")
				continue
			}
			sel := session.Choose(candidates[n-1])
			candidates = nil
			fmt.Fprintf(out, "mentioned %s\n", sel.Name)
		case "/attach":
			uri, err := datauri.ReadFile(arg)
			if err != nil {
				fmt.Fprintf(out, "cannot read %s: %v\n", arg, err)
				continue
			}
			f, err := session.Attach(filepath.Base(arg), uri)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			fmt.Fprintf(out, "staged %s as %s\n", f.Name, f.LocalID)
		case "/files":
			for _, f := range session.Files() {
				status := "new"
				if f.Uploaded() {
					status = "saved"
				}
				fmt.Fprintf(out, "  %s  %s (%s)\n", f.LocalID, f.Name, status)
			}
			for _, f := range session.PendingDeletes() {
				fmt.Fprintf(out, "  %s  %s (will be deleted)\n", f.ID, f.Name)
			}
		case "/remove":
			if err := session.Remove(arg); err != nil {
				fmt.Fprintln(out, err)
			}
		case "/text":
			fmt.Fprintln(out, session.Text())
		case "/clear":
			session.Reset()
			candidates = nil
		case "/send":
			id, err := session.Submit(ctx)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", session.State(), err)
				continue
			}
			fmt.Fprintf(out, "saved %s\n", id)
			return nil
		case "/quit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %s\n", command)
		}
	}
}
