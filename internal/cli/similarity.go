package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/embedding"
)

func init() {
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Inspect or build class-name similarity tables",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the active similarity table as YAML",
		Run:   runSimilarityShow,
	}
	show.Flags().String("similarity", "", "Similarity table YAML (default: configured or built-in)")

	build := &cobra.Command{
		Use:   "build [names-file]",
		Short: "Build a similarity table from text embeddings",
		Long: "Embed each class name (one per line, stdin or file) with the configured provider and keep\n" +
			"the pairs whose cosine similarity reaches --threshold. Writes YAML to stdout or --out.",
		Args: cobra.MaximumNArgs(1),
		Run:  runSimilarityBuild,
	}
	build.Flags().Float64("threshold", embedding.DefaultThreshold, "Lowest cosine similarity to keep")
	build.Flags().Int("workers", 4, "Concurrent embedding requests")
	build.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	build.Flags().String("provider", "", "Embedding provider: ollama or openai (default: configured)")
	build.Flags().String("model", "", "Embedding model (default: configured)")

	cmd.AddCommand(show, build)
	RootCmd.AddCommand(cmd)
}

func runSimilarityShow(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("similarity")
	table, err := loadTable(path)
	if err != nil {
		exitErr("load similarity table", err)
	}
	if err := table.WriteYAML(os.Stdout); err != nil {
		exitErr("write yaml", err)
	}
}

func runSimilarityBuild(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	workers, _ := cmd.Flags().GetInt("workers")
	out, _ := cmd.Flags().GetString("out")
	provider, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open names", err)
		}
		defer f.Close()
		r = f
	}
	names, err := readNames(r)
	if err != nil {
		exitErr("read names", err)
	}

	ecfg := cfg.Embedding
	if provider != "" {
		ecfg.Provider = provider
	}
	if modelName != "" {
		ecfg.Model = modelName
	}
	emb, err := embedding.New(ecfg)
	if err != nil {
		exitErr("embedder", err)
	}

	table, err := embedding.BuildTable(cmd.Context(), emb, names, embedding.BuildOptions{
		Threshold: threshold,
		Workers:   workers,
		Logger:    logger,
	})
	if err != nil {
		exitErr("build table", err)
	}
	logger.Info("built similarity table", "names", len(names), "pairs", table.Len())

	if out == "" {
		if err := table.WriteYAML(os.Stdout); err != nil {
			exitErr("write yaml", err)
		}
		return
	}
	if err := writeFile(out, func(f *os.File) error { return table.WriteYAML(f) }); err != nil {
		exitErr("write yaml", err)
	}
}

// readNames reads one class name per line, skipping blanks and # comments.
func readNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, sc.Err()
}
