package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/narrative"
)

func init() {
	cmd := &cobra.Command{
		Use:   "entity <entity-id>",
		Short: "Show an entity of a saved run and its relation history",
		Args:  cobra.ExactArgs(1),
		Run:   runEntity,
	}

	cmd.Flags().String("run", "", "Run ID (default: latest)")

	RootCmd.AddCommand(cmd)
}

func runEntity(cmd *cobra.Command, args []string) {
	runID, _ := cmd.Flags().GetString("run")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := resolveRun(cmd.Context(), s, runID)
	if err != nil {
		exitErr("entity", err)
	}
	e, err := s.Entity(cmd.Context(), run.ID, args[0])
	if err != nil {
		exitErr("entity", err)
	}
	rels, err := s.Relations(cmd.Context(), run.ID, e.ID)
	if err != nil {
		exitErr("relations", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s (%s) frames %d-%d, seen in %d\n", e.ID, e.Name, e.FirstSeen, e.LastSeen(), len(e.Frames))
		for _, r := range rels {
			fmt.Printf("  %s (until frame %d)\n", narrative.Sentence(r), r.LastPresence)
		}
		return
	}
	if rels == nil {
		rels = []model.EdgeRecord{}
	}
	printJSON(map[string]any{
		"run_id":    run.ID,
		"entity":    e,
		"relations": rels,
	})
}
