package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the ToolGate server",
	RunE:  runHealthCheck,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	health, err := apiClient.Health()
	if err != nil {
		return fmt.Errorf("failed to check server health: %w", err)
	}

	j, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render health status: %w", err)
	}
	cmd.Println(string(j))
	return nil
}
