package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tokens [text]",
		Short: "Count tokens",
		Long:  "Count the tokens of the given text (arg or stdin) with the configured tokenizer. Without text, report the total over all stored memories.",
		Run:   runTokens,
	}

	RootCmd.AddCommand(cmd)
}

func runTokens(cmd *cobra.Command, args []string) {
	if text := readContent(args, os.Stdin); text != "" {
		n := newTokenizer().CountTokens(text)
		fmt.Printf(`{"tokens":%d}`+"\n", n)
		return
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	total, err := s.TotalTokens(cmd.Context())
	if err != nil {
		exitErr("tokens", err)
	}
	b, _ := json.Marshal(map[string]any{"total_tokens": total})
	fmt.Println(string(b))
}
