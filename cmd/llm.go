package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/codequiz/internal/llm"
	"github.com/abhisek/codequiz/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect audited LLM calls made for question generation",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		limit, _ := flags.GetInt("limit")
		purpose, _ := flags.GetString("purpose")
		since, _ := flags.GetDuration("since")
		failedOnly, _ := flags.GetBool("failed")

		opts := store.QueryOpts{Limit: limit, Purpose: purpose}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		return withAuditLog(cmd, func(ctx context.Context, audit *store.AuditLog) error {
			calls, err := audit.QueryLLMCalls(ctx, opts)
			if err != nil {
				return fmt.Errorf("query calls: %w", err)
			}
			if failedOnly {
				calls = failedCalls(calls)
			}
			if len(calls) == 0 {
				fmt.Println("No LLM calls recorded.")
				return nil
			}
			printCallTable(calls)
			return nil
		})
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response of an LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		return withAuditLog(cmd, func(ctx context.Context, audit *store.AuditLog) error {
			rec, err := audit.GetLLMCall(ctx, id)
			if err != nil {
				return fmt.Errorf("get call: %w", err)
			}
			if rec == nil {
				return fmt.Errorf("call %d not found", id)
			}
			printCall(rec)
			return nil
		})
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditLog(cmd, func(ctx context.Context, audit *store.AuditLog) error {
			byPurpose, err := audit.UsageByPurpose(ctx)
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			if len(byPurpose) == 0 {
				fmt.Println("No LLM usage recorded yet.")
				return nil
			}
			printUsage(byPurpose)

			byModel, err := audit.UsageByModel(ctx)
			if err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}
			if len(byModel) > 0 {
				fmt.Println()
				printCost(byModel)
			}
			return nil
		})
	},
}

var llmPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audited LLM calls older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		cutoff := time.Now().Add(-olderThan)

		return withAuditLog(cmd, func(ctx context.Context, audit *store.AuditLog) error {
			n, err := audit.PruneBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d call(s) recorded before %s\n", n, cutoff.Local().Format(timeLayout))
			return nil
		})
	},
}

// withAuditLog opens the audit database for the duration of fn.
func withAuditLog(cmd *cobra.Command, fn func(context.Context, *store.AuditLog) error) error {
	s, err := openAuditStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s.AuditLog())
}

func failedCalls(calls []store.LLMCallRecord) []store.LLMCallRecord {
	var out []store.LLMCallRecord
	for _, c := range calls {
		if !c.Success {
			out = append(out, c)
		}
	}
	return out
}

func rule(width int) string {
	return strings.Repeat("─", width)
}

func printCallTable(calls []store.LLMCallRecord) {
	const row = "%-5v  %-19s  %-14s  %-28s  %6v  %6v  %7v  %s\n"
	fmt.Printf(row, "ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Println(rule(100))
	for _, c := range calls {
		status := "ok"
		if !c.Success {
			status = "FAIL " + truncate(c.ErrorMessage, 24)
		}
		fmt.Printf(row, c.ID, c.Timestamp.Local().Format(timeLayout), c.Purpose,
			truncate(c.Model, 28), c.InputTokens, c.OutputTokens, c.LatencyMs, status)
	}
}

func printCall(c *store.LLMCallRecord) {
	fields := []struct{ label, value string }{
		{"ID", strconv.FormatInt(c.ID, 10)},
		{"Time", c.Timestamp.Local().Format(timeLayout)},
		{"Provider", c.Provider},
		{"Model", c.Model},
		{"Purpose", c.Purpose},
		{"Tokens", fmt.Sprintf("%d in / %d out", c.InputTokens, c.OutputTokens)},
		{"Latency", fmt.Sprintf("%dms", c.LatencyMs)},
		{"Success", strconv.FormatBool(c.Success)},
	}
	if c.ErrorMessage != "" {
		fields = append(fields, struct{ label, value string }{"Error", c.ErrorMessage})
	}
	for _, f := range fields {
		fmt.Printf("%-10s %s\n", f.label+":", f.value)
	}

	printSection("REQUEST", c.RequestBody)
	printSection("RESPONSE", c.ResponseBody)
}

func printSection(title, body string) {
	if body == "" {
		body = "(not captured)"
	}
	fmt.Printf("\n%s\n%s\n%s\n%s\n", rule(60), title, rule(60), body)
}

func printUsage(rows []store.UsageRow) {
	const row = "%-16s  %6v  %10v  %10v  %10v  %8v\n"
	fmt.Println("Usage by Purpose")
	fmt.Println(rule(72))
	fmt.Printf(row, "Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
	fmt.Println(rule(72))

	var sum store.UsageRow
	for _, r := range rows {
		fmt.Printf(row, r.Purpose, r.Calls, r.InputTokens, r.OutputTokens, r.InputTokens+r.OutputTokens, r.AvgLatencyMs)
		sum.Calls += r.Calls
		sum.InputTokens += r.InputTokens
		sum.OutputTokens += r.OutputTokens
	}
	fmt.Println(rule(72))
	fmt.Printf(row, "TOTAL", sum.Calls, sum.InputTokens, sum.OutputTokens, sum.InputTokens+sum.OutputTokens, "")
}

func printCost(rows []store.UsageRow) {
	const row = "%-32s  %6v  %10v  %10v  %10s\n"
	fmt.Println("Estimated Cost (USD)")
	fmt.Println(rule(72))
	fmt.Printf(row, "Model", "Calls", "Input", "Output", "Cost")
	fmt.Println(rule(72))

	var (
		total   float64
		unknown []string
	)
	for _, r := range rows {
		cost := "?"
		if price := llm.LookupCost(r.Model); price != nil {
			c := price.Cost(r.InputTokens, r.OutputTokens)
			total += c
			cost = formatCost(c)
		} else {
			unknown = append(unknown, r.Model)
		}
		fmt.Printf(row, truncate(r.Model, 32), r.Calls, r.InputTokens, r.OutputTokens, cost)
	}

	label := "TOTAL"
	if len(unknown) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Println(rule(72))
	fmt.Printf(row, label, "", "", "", formatCost(total))
	if len(unknown) > 0 {
		fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. "+llm.PurposeQuestionGen+")")
	llmListCmd.Flags().Duration("since", 0, "Only show calls from the last duration (e.g. 24h)")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")

	llmPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete calls older than this")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd, llmPruneCmd)
}
