package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a memory",
		Long:  "Retrieve a memory by id. Retrieval refreshes its last access time.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, ok, err := s.Retrieve(cmd.Context(), model.MemoryID(args[0]))
	if err != nil {
		exitErr("get", err)
	}
	if !ok {
		exitErr("get", fmt.Errorf("memory %s not found", args[0]))
	}

	if formatFlag == "text" {
		fmt.Println(mem.Content)
		return
	}
	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}
