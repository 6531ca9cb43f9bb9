package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/bank"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble relevant memories into a token budget",
		Long:  "Score every memory for the mode and query, then greedily pack the best into the token budget. Without a query, recent memories rank higher.",
		Run:   runContext,
	}

	addContextFlags(cmd)
	RootCmd.AddCommand(cmd)
}

func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "code", "Mode: code, architect, debug")
	cmd.Flags().IntP("budget", "b", 0, "Max tokens in output (default: token_budget.total)")
	cmd.Flags().Float64("threshold", 0, "Minimum relevance in [0, 1] (default: relevance.threshold)")
	cmd.Flags().StringSlice("category", nil, "Only include these categories")
	cmd.Flags().String("date", "", "Only include entries with this date")
}

func contextParams(cmd *cobra.Command, args []string) bank.ContextParams {
	mode, _ := cmd.Flags().GetString("mode")
	budget, _ := cmd.Flags().GetInt("budget")
	categories, _ := cmd.Flags().GetStringSlice("category")
	date, _ := cmd.Flags().GetString("date")

	p := bank.ContextParams{
		Mode:       mode,
		Query:      strings.Join(args, " "),
		MaxTokens:  budget,
		Categories: categories,
		Date:       date,
	}
	if cmd.Flags().Changed("threshold") {
		t, _ := cmd.Flags().GetFloat64("threshold")
		p.Threshold = &t
	}
	return p
}

func runContext(cmd *cobra.Command, args []string) {
	printContext(cmd, contextParams(cmd, args))
}

func printContext(cmd *cobra.Command, p bank.ContextParams) {
	svc, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer svc.Store().Close()

	result, err := svc.Context(cmd.Context(), p)
	if err != nil {
		exitErr("context", err)
	}

	if formatFlag == "text" {
		fmt.Print(result.Context)
		return
	}
	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
