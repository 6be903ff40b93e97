package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/people-agent/server/internal/agent/people"
)

var searchCmd = &cobra.Command{
	Use:   "search <name prefix>",
	Short: "List users whose display name starts with a prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		candidates, err := people.Search(cmd.Context(), a.tokens, a.graph, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(candidates) == 0 {
			fmt.Fprintln(out, "No users found with that name.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIDENTITY\tJOB TITLE")
		for _, c := range candidates {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.DisplayName, c.Identity(), c.JobTitle)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
