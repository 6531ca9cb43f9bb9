package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("type", "t", "text/plain", "Content type")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().StringP("mode", "m", "", "Mode: code, architect, debug")
	cmd.Flags().StringToString("meta", nil, "Metadata as key=value pairs")

	RootCmd.AddCommand(cmd)
}

// readContent returns the positional args joined, or in when it is piped.
// An in that cannot be inspected is treated as empty.
func readContent(args []string, in *os.File) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, err := in.Stat()
	if err != nil {
		logger.Debug("stat stdin", "err", err)
		return ""
	}
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(in)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func runPut(cmd *cobra.Command, args []string) {
	contentType, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	mode, _ := cmd.Flags().GetString("mode")
	meta, _ := cmd.Flags().GetStringToString("meta")

	content := strings.TrimSpace(readContent(args, os.Stdin))
	if content == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Store(cmd.Context(), store.StoreParams{
		Content:     content,
		ContentType: contentType,
		Category:    category,
		Mode:        mode,
		Metadata:    meta,
	})
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
