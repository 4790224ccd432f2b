package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble the most salient sentences of a run within a token budget",
		Long: "Rank the sentences of a saved run by how long and how recently each relation held,\n" +
			"keep as many as fit the budget and print them in narrative order.",
		Run: runContext,
	}

	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().StringP("query", "q", "", "Only consider sentences containing this text")
	cmd.Flags().IntP("budget", "b", 4000, "Token budget")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	runID, _ := cmd.Flags().GetString("run")
	query, _ := cmd.Flags().GetString("query")
	budget, _ := cmd.Flags().GetInt("budget")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := resolveRun(cmd.Context(), s, runID)
	if err != nil {
		exitErr("context", err)
	}

	result, err := s.Context(cmd.Context(), store.ContextParams{
		RunID:  run.ID,
		Query:  query,
		Budget: budget,
	})
	if err != nil {
		exitErr("context", err)
	}

	if formatFlag == "text" {
		for _, c := range result.Sentences {
			fmt.Println(c.Text)
		}
		return
	}
	printJSON(result)
}
