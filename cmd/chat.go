package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/people"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

var chatStream bool

var chatCmd = &cobra.Command{
	Use:   "chat [identity]",
	Short: "Start an interactive conversation about one user",
	Long: `Start an interactive conversation about one user. The identity may be an
email address, a directory object id or the start of a display name.

Inside the conversation:
  exit           end the session and quit
  /user <name>   switch to another user (history is cleared)
  /users         list every user in the directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatStream, "stream", true, "print the answer as it is generated")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout belongs to the conversation.
	a, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.startSessions(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	identity, err := pickUser(ctx, a, in, out, input)
	if err != nil || identity == "" {
		return err
	}
	agent, err := a.sessions.GetOrCreate(ctx, identity)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nAsking about %s. Type 'exit' to quit.\n", identity)
	for {
		fmt.Fprint(out, "\n> ")
		if !in.Scan() {
			return a.sessions.End(context.WithoutCancel(ctx), identity)
		}
		line := strings.TrimSpace(in.Text())

		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"):
			fmt.Fprintln(out, "Goodbye.")
			return a.sessions.End(ctx, identity)
		case line == "/users":
			users, err := agent.AllUsers(ctx)
			if err != nil {
				printTurnError(out, err)
				continue
			}
			printJSON(out, users)
			continue
		case strings.HasPrefix(line, "/user "):
			next, err := resolveInteractive(ctx, a.tokens, a.graph, in, out, strings.TrimPrefix(line, "/user "))
			if err != nil {
				printTurnError(out, err)
				continue
			}
			if next == "" {
				continue
			}
			switched, err := a.sessions.Switch(ctx, identity, next)
			if err != nil {
				printTurnError(out, err)
				continue
			}
			agent, identity = switched, switched.Identity()
			fmt.Fprintf(out, "Switched to %s.\n", identity)
			continue
		}

		if err := ask(ctx, agent, out, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			printTurnError(out, err)
		}
	}
}

// pickUser turns the starting input into an identity. A blank input shows
// the directory and asks again; an empty result means the user gave up.
func pickUser(ctx context.Context, a *app, in *bufio.Scanner, out io.Writer, input string) (string, error) {
	for {
		if strings.TrimSpace(input) == "" {
			users, err := people.ListAllUsers(ctx, a.tokens, a.graph)
			if err != nil {
				return "", err
			}
			fmt.Fprintln(out, "All users:")
			printJSON(out, users)
			fmt.Fprint(out, "\nEmail, object id or name to inspect (or 'exit'): ")
			if !in.Scan() {
				return "", nil
			}
			input = strings.TrimSpace(in.Text())
			if strings.EqualFold(input, "exit") {
				return "", nil
			}
			if input == "" {
				continue
			}
		}

		identity, err := resolveInteractive(ctx, a.tokens, a.graph, in, out, input)
		if errors.Is(err, errx.ErrIdentityNotFound) {
			fmt.Fprintln(out, "No users found with that name.")
			input = ""
			continue
		}
		return identity, err
	}
}

// resolveInteractive resolves input like ResolveIdentity but lets the user
// pick when a name matches several people. Choosing 0 returns "".
func resolveInteractive(ctx context.Context, tokens auth.TokenSource, dir people.Searcher, in *bufio.Scanner, out io.Writer, input string) (string, error) {
	identity, err := people.ResolveIdentity(ctx, tokens, dir, input)
	var ambiguous *people.AmbiguousIdentityError
	if !errors.As(err, &ambiguous) {
		return identity, err
	}

	fmt.Fprintln(out, "Multiple users found:")
	for i, c := range ambiguous.Candidates {
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, c.DisplayName, c.Identity())
	}
	fmt.Fprint(out, "Enter the number of the user to inspect (or 0 to cancel): ")
	if !in.Scan() {
		return "", nil
	}
	choice, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil || choice == 0 {
		return "", nil
	}
	if choice < 0 || choice > len(ambiguous.Candidates) {
		return "", fmt.Errorf("invalid choice %d", choice)
	}
	return ambiguous.Candidates[choice-1].Identity(), nil
}

func ask(ctx context.Context, agent *people.Agent, out io.Writer, query string) error {
	if !chatStream {
		res, err := agent.Ask(ctx, query)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Answer)
		return nil
	}
	_, err := agent.AskStream(ctx, query, func(chunk string) error {
		_, err := io.WriteString(out, chunk)
		return err
	})
	fmt.Fprintln(out)
	return err
}

// printTurnError logs the cause and shows only the public message.
func printTurnError(out io.Writer, err error) {
	logx.Error().Err(err).Msg("turn failed")
	fmt.Fprintln(out, errx.PublicMessage(err))
}

func printJSON(out io.Writer, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(out, v)
		return
	}
	fmt.Fprintln(out, string(b))
}
