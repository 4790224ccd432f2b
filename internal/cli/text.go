package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/narrative"
)

func init() {
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Print the narrative of a saved run",
		Run:   runText,
	}

	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().Bool("timeline", false, "Print the scene timeline instead of sentences")
	cmd.Flags().Duration("step", 0, "Duration of one frame in the timeline (default 1s)")
	cmd.Flags().Int("page-size", 0, "Split the narrative into pages of about this many characters")

	RootCmd.AddCommand(cmd)
}

func runText(cmd *cobra.Command, args []string) {
	runID, _ := cmd.Flags().GetString("run")
	timeline, _ := cmd.Flags().GetBool("timeline")
	step, _ := cmd.Flags().GetDuration("step")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := resolveRun(cmd.Context(), s, runID)
	if err != nil {
		exitErr("text", err)
	}
	snap, err := s.Load(cmd.Context(), run.ID)
	if err != nil {
		exitErr("text", err)
	}

	switch {
	case timeline:
		fmt.Print(narrative.Timeline(*snap, step))
	case pageSize > 0:
		pages := narrative.Pages(*snap, narrative.PageOptions{TargetSize: pageSize, MaxSize: pageSize + pageSize/3})
		if formatFlag == "text" {
			for i, p := range pages {
				fmt.Printf("--- page %d (frames %d-%d) ---\n%s\n", i+1, p.FirstFrame, p.LastFrame, p.Text)
			}
			return
		}
		printJSON(pages)
	default:
		if formatFlag == "text" {
			fmt.Println(narrative.Text(*snap))
			return
		}
		printJSON(map[string]any{
			"run_id":    run.ID,
			"sentences": narrative.Sentences(*snap),
		})
	}
}
