package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved runs as JSON",
		Long:  "Export every saved run with its snapshot as a JSON array. Filter by run name with -n.",
		Run:   runExport,
	}

	cmd.Flags().StringP("name", "n", "", "Filter by run name")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exports, err := s.ExportAll(cmd.Context(), name)
	if err != nil {
		exitErr("export", err)
	}

	printJSON(exports)
}
