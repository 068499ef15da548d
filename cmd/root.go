package cmd

import (
	"flag"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abhisek/codequiz/internal/config"
	"github.com/abhisek/codequiz/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "codequiz",
	Short: "Five-question programming quiz service",
	Long: "codequiz serves multiple-choice programming quizzes over HTTP. Sessions live in Redis, " +
		"questions come from an LLM with a built-in fallback, and a background reaper clears expired sessions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its flags from the standard flag set.
		_ = flag.CommandLine.Parse(nil)

		envFile, _ := cmd.Flags().GetString("env-file")
		return config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file"))
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite LLM audit database (overrides QUIZ_AUDIT_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then QUIZ_AUDIT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
