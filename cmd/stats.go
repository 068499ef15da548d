package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/codequiz/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz session counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Load()

		client, sessions, err := openSessionStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		st, err := sessions.Stats(ctx)
		if err != nil {
			return fmt.Errorf("query stats: %w", err)
		}

		fmt.Printf("Quiz sessions under %q\n", sessions.Prefix())
		fmt.Println(strings.Repeat("─", 32))
		fmt.Printf("%-12s  %8d\n", "Active", st.Active)
		fmt.Printf("%-12s  %8d\n", "Completed", st.Completed)
		fmt.Printf("%-12s  %8d\n", "Expired", st.Expired)
		fmt.Println(strings.Repeat("─", 32))
		fmt.Printf("%-12s  %8d\n", "TOTAL", st.Total)
		return nil
	},
}
