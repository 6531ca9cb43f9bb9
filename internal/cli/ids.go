package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "ids",
		Aliases: []string{"list"},
		Short:   "List memory ids",
		Run:     runIDs,
	}

	RootCmd.AddCommand(cmd)
}

func runIDs(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ids, err := s.AllIDs(cmd.Context())
	if err != nil {
		exitErr("ids", err)
	}

	if formatFlag == "text" {
		for _, id := range ids {
			fmt.Println(id)
		}
		return
	}
	b, _ := json.MarshalIndent(ids, "", "  ")
	fmt.Println(string(b))
}
