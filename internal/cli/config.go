package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/smart-memory/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Memory bank configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run:   runConfigShow,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(showCmd, initCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := config.LoadOrDefault(getConfigPath(), logger)

	if formatFlag == "text" {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			exitErr("config show", err)
		}
		fmt.Print(string(b))
		return
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println(string(b))
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := getConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.Default().ToFile(path); err != nil {
		exitErr("config init", err)
	}

	fmt.Printf(`{"ok":true,"path":%q}`+"\n", path)
}
