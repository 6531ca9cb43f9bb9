package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	repo, ok := s.Repository().(*store.SQLiteRepository)
	if !ok {
		exitErr("stats", fmt.Errorf("repository does not report statistics"))
	}
	info, err := repo.Info(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	total, err := s.TotalTokens(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(struct {
		*store.Info
		TotalTokens model.TokenCount `json:"total_tokens"`
	}{info, total}, "", "  ")
	fmt.Println(string(b))
}
