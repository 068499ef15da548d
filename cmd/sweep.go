package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/codequiz/internal/config"
	"github.com/abhisek/codequiz/internal/reaper"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired quiz sessions once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Load()

		client, sessions, err := openSessionStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		r := reaper.New(sessions, nil, reaper.Config{})
		res, err := r.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}

		fmt.Printf("Scanned:  %d\n", res.Scanned)
		fmt.Printf("Deleted:  %d\n", res.Deleted)
		if res.Failed > 0 {
			fmt.Printf("Failed:   %d\n", res.Failed)
		}
		fmt.Printf("Sessions: %d -> %d\n", res.Before, res.After)
		fmt.Printf("Took:     %s\n", res.Duration)
		return nil
	},
}
