package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the ToolGate server",
	RunE:  runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	for _, t := range tools {
		cmd.Println(t.Name)
		cmd.Println(t.Description)

		if len(t.InputSchema.Properties) == 0 {
			cmd.Println("This tool does not require any input parameters.")
			cmd.Println()
			continue
		}

		names := make([]string, 0, len(t.InputSchema.Properties))
		for k := range t.InputSchema.Properties {
			names = append(names, k)
		}
		slices.Sort(names)

		params := make([]string, 0, len(names))
		for _, k := range names {
			if slices.Contains(t.InputSchema.Required, k) {
				k += " (required)"
			}
			params = append(params, k)
		}
		cmd.Println("Parameters: " + strings.Join(params, ", "))
		cmd.Println()
	}

	return nil
}
