package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/framegraph"
	"github.com/rcliao/graphene/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Build a temporal graph from a directory of frame files",
		Long: "Read every *.json frame file in <dir> in lexical order, resolve its objects to persistent\n" +
			"entities and print a run summary. Each file holds an array of subject/predicate/object triples.",
		Args: cobra.ExactArgs(1),
		Run:  runIngest,
	}

	addEngineFlags(cmd)
	cmd.Flags().IntP("window", "w", 1, "Merge this many consecutive files into one frame")
	cmd.Flags().String("resume", "", "Continue a saved run (use \"latest\" for the newest)")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	window, _ := cmd.Flags().GetInt("window")
	resume, _ := cmd.Flags().GetString("resume")

	files, err := framegraph.ListFrameFiles(args[0])
	if err != nil {
		exitErr("list frames", err)
	}
	if len(files) == 0 {
		exitErr("list frames", fmt.Errorf("no .json files in %s", args[0]))
	}

	frames := make([][]model.Triple, 0, len(files))
	for _, path := range files {
		triples, err := framegraph.LoadFile(path)
		if err != nil {
			exitErr("load frame", err)
		}
		frames = append(frames, triples)
	}
	frames = framegraph.MergeWindow(frames, window)

	s, err := newSession(cmd)
	if err != nil {
		exitErr("configure", err)
	}

	first := 0
	if resume != "" {
		if resume == "latest" {
			resume = ""
		}
		if first, err = s.resume(cmd, resume); err != nil {
			exitErr("resume", err)
		}
	}

	for i, triples := range frames {
		if _, err := s.insert(first+i, triples); err != nil {
			exitErr("insert", err)
		}
	}

	sum, err := s.finish(cmd)
	if err != nil {
		exitErr("finish", err)
	}
	printJSON(sum)
}
