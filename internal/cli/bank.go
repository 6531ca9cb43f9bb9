package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/bank"
	"github.com/rcliao/smart-memory/internal/chunker"
	"github.com/rcliao/smart-memory/internal/model"
)

func init() {
	bankCmd := &cobra.Command{
		Use:   "bank",
		Short: "Memory bank operations",
	}

	storeCmd := &cobra.Command{
		Use:   "store [content]",
		Short: "Store a markdown entry in a category",
		Run:   runBankStore,
	}
	storeCmd.Flags().String("category", "", "Category (required)")
	storeCmd.Flags().StringP("mode", "m", "", "Mode: code, architect, debug")
	storeCmd.Flags().String("date", "", "Entry date, e.g. 2024-06-01")
	storeCmd.Flags().StringToString("meta", nil, "Metadata as key=value pairs")
	storeCmd.Flags().Bool("split", false, "Split the document on headings into sections stored as separate entries")
	storeCmd.Flags().Int("section-tokens", chunker.DefaultMaxTokens, "Max tokens per section with --split")
	storeCmd.MarkFlagRequired("category")

	contextCmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble context with sources labeled by category",
		Run:   runBankContext,
	}
	addContextFlags(contextCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-category usage against budgets",
		Run:   runBankStats,
	}

	umbCmd := &cobra.Command{
		Use:   "umb [context]",
		Short: "Update the memory bank",
		Long:  "Store the given context (arg or stdin) in the context, decision and progress categories.",
		Run:   runBankUMB,
	}
	umbCmd.Flags().StringP("mode", "m", "", "Mode: code, architect, debug")
	umbCmd.Flags().StringToString("meta", nil, "Metadata as key=value pairs")

	bankCmd.AddCommand(storeCmd, contextCmd, statsCmd, umbCmd)
	RootCmd.AddCommand(bankCmd)
}

func runBankStore(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	mode, _ := cmd.Flags().GetString("mode")
	date, _ := cmd.Flags().GetString("date")
	meta, _ := cmd.Flags().GetStringToString("meta")
	split, _ := cmd.Flags().GetBool("split")
	sectionTokens, _ := cmd.Flags().GetInt("section-tokens")

	if split && sectionTokens < 1 {
		exitErr("bank store", fmt.Errorf("--section-tokens must be at least 1, got %d", sectionTokens))
	}

	content := strings.TrimSpace(readContent(args, os.Stdin))
	if content == "" {
		exitErr("bank store", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	svc, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer svc.Store().Close()

	entry := bank.EntryParams{
		Content:  content,
		Category: category,
		Mode:     mode,
		Date:     date,
		Metadata: meta,
	}

	if split {
		opts := chunker.Sized(model.NewTokenCount(sectionTokens))
		mems, err := svc.StoreDocument(cmd.Context(), entry, opts)
		if err != nil {
			exitErr("bank store", err)
		}
		b, _ := json.MarshalIndent(mems, "", "  ")
		fmt.Println(string(b))
		return
	}

	mem, err := svc.StoreEntry(cmd.Context(), entry)
	if err != nil {
		exitErr("bank store", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

func runBankContext(cmd *cobra.Command, args []string) {
	p := contextParams(cmd, args)
	p.SourceByCategory = true
	printContext(cmd, p)
}

func runBankStats(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer svc.Store().Close()

	stats, err := svc.Stats(cmd.Context())
	if err != nil {
		exitErr("bank stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func runBankUMB(cmd *cobra.Command, args []string) {
	mode, _ := cmd.Flags().GetString("mode")
	meta, _ := cmd.Flags().GetStringToString("meta")

	text := strings.TrimSpace(readContent(args, os.Stdin))
	if text == "" {
		exitErr("umb", fmt.Errorf("context is required (positional arg or stdin)"))
	}

	svc, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer svc.Store().Close()

	res, err := svc.UMB(cmd.Context(), bank.UMBParams{Mode: mode, Context: text, Metadata: meta})
	if errors.Is(err, bank.ErrUMBDisabled) {
		exitErr("umb", fmt.Errorf("%w (set update_triggers.umb_command in %s)", err, getConfigPath()))
	}
	if err != nil {
		exitErr("umb", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
