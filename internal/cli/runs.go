package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		Run:   runRuns,
	}

	cmd.Flags().StringP("name", "n", "", "Filter by run name")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRuns(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.List(cmd.Context(), store.ListParams{Name: name, Limit: limit})
	if err != nil {
		exitErr("runs", err)
	}

	if formatFlag == "text" {
		for _, r := range runs {
			fmt.Printf("%s  %-16s  frames=%d entities=%d edges=%d  %s\n",
				r.ID, r.Name, r.Frames, r.Entities, r.Edges, r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	printJSON(runs)
}
