package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search narrative sentences of saved runs",
		Args:  cobra.ExactArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("run", "", "Restrict to one run")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		RunID: runID,
		Query: args[0],
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		for _, r := range results {
			fmt.Printf("[%s] %s\n", r.RunID, r.Text)
		}
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	printJSON(results)
}
