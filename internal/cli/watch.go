package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/framegraph"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Follow a directory and insert frame files as they appear",
		Long: "Poll <dir> for new *.json frame files, insert each in lexical order and rewrite the\n" +
			"--text and --timeline outputs after every frame. Stops on SIGINT or SIGTERM.",
		Args: cobra.ExactArgs(1),
		Run:  runWatch,
	}

	addEngineFlags(cmd)
	cmd.Flags().Duration("interval", time.Second, "Polling interval")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	interval, _ := cmd.Flags().GetDuration("interval")
	dir := args[0]
	if interval <= 0 {
		exitErr("watch", fmt.Errorf("--interval must be positive, got %s", interval))
	}

	s, err := newSession(cmd)
	if err != nil {
		exitErr("configure", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching", "dir", dir, "interval", interval)
	if err := watchFrames(ctx, dir, interval, s); err != nil {
		exitErr("watch", err)
	}

	sum, err := s.finish(cmd)
	if err != nil {
		exitErr("finish", err)
	}
	printJSON(sum)
}

// maxFrameAttempts is how many polls a frame file may fail to parse before
// it is skipped.
const maxFrameAttempts = 3

// watchFrames inserts files it has not seen yet until ctx is done. A frame
// is never interrupted halfway; cancellation is checked between inserts.
// A file that cannot be parsed holds back later files until it has failed
// maxFrameAttempts polls, then it is skipped with a warning.
func watchFrames(ctx context.Context, dir string, interval time.Duration, s *session) error {
	if interval <= 0 {
		return fmt.Errorf("non-positive poll interval %s", interval)
	}
	seen := make(map[string]bool)
	failures := make(map[string]int)
	next := 0

	poll := func() error {
		files, err := framegraph.ListFrameFiles(dir)
		if err != nil {
			return err
		}
		for _, path := range files {
			if seen[path] {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			triples, err := framegraph.LoadFile(path)
			if err != nil {
				failures[path]++
				if failures[path] < maxFrameAttempts {
					// Possibly still being written; retry on the next tick.
					logger.Debug("frame not readable yet", "path", path, "attempt", failures[path], "error", err)
					return nil
				}
				logger.Warn("skipping unreadable frame", "path", path, "attempts", failures[path], "error", err)
				seen[path] = true
				delete(failures, path)
				continue
			}
			seen[path] = true
			delete(failures, path)
			if _, err := s.insert(next, triples); err != nil {
				return err
			}
			next++
			if err := s.writeText(); err != nil {
				return err
			}
		}
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			logger.Info("stopping", "frames", next)
			return nil
		case <-ticker.C:
		}
	}
}
