package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/temporal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import runs from JSON",
		Long:  "Import runs from JSON (stdin or file). Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	var exports []model.RunExport
	if err := json.Unmarshal(data, &exports); err != nil {
		exitErr("parse json", err)
	}

	// Reject snapshots the engine could not resume from.
	for _, ex := range exports {
		if _, err := temporal.Restore(ex.Snapshot, nil); err != nil {
			exitErr("validate run "+ex.Run.ID, err)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), exports)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
