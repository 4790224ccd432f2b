package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/plot"
)

func init() {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a saved run as Graphviz DOT",
		Long:  "Write one cluster per frame (every 10th frame for long runs) with the relations alive in it.",
		Run:   runPlot,
	}

	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int("max-layers", plot.DefaultMaxLayers, "Sample frames when the run has more than this many")
	cmd.Flags().Int("every", plot.DefaultSampleEvery, "Plot every n-th frame when sampling")

	RootCmd.AddCommand(cmd)
}

func runPlot(cmd *cobra.Command, args []string) {
	runID, _ := cmd.Flags().GetString("run")
	out, _ := cmd.Flags().GetString("out")
	maxLayers, _ := cmd.Flags().GetInt("max-layers")
	every, _ := cmd.Flags().GetInt("every")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := resolveRun(cmd.Context(), s, runID)
	if err != nil {
		exitErr("plot", err)
	}
	snap, err := s.Load(cmd.Context(), run.ID)
	if err != nil {
		exitErr("plot", err)
	}

	opts := plot.Options{MaxLayers: maxLayers, SampleEvery: every, Title: run.Name}
	if out == "" {
		if err := plot.WriteDOT(os.Stdout, *snap, opts); err != nil {
			exitErr("plot", err)
		}
		return
	}
	if err := writeFile(out, func(f *os.File) error { return plot.WriteDOT(f, *snap, opts) }); err != nil {
		exitErr("plot", err)
	}
}
