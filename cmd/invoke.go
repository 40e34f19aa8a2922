package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var invokeCmdInput string

var invokeCmd = &cobra.Command{
	Use:   "invoke <tool>",
	Short: "Invoke a tool on the ToolGate server",
	Long: "Invokes the named tool with the parameters supplied as a JSON object.\n\n" +
		"eg: toolgate invoke chat_with_gpt --input '{\"user_message\": \"hello\"}'",
	Args: cobra.ExactArgs(1),
	RunE: runInvokeTool,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

func init() {
	invokeCmd.Flags().StringVar(
		&invokeCmdInput,
		"input",
		"{}",
		"tool parameters as a JSON object",
	)

	rootCmd.AddCommand(invokeCmd)
}

func runInvokeTool(cmd *cobra.Command, args []string) error {
	var params map[string]any
	if err := json.Unmarshal([]byte(invokeCmdInput), &params); err != nil {
		return fmt.Errorf("--input must be a valid JSON object: %w", err)
	}

	result, err := apiClient.InvokeTool(args[0], params)
	if err != nil {
		return fmt.Errorf("failed to invoke tool '%s': %w", args[0], err)
	}

	j, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	cmd.Println(string(j))

	if result.IsError() {
		return fmt.Errorf("tool call failed: %s", result.Error.Kind)
	}
	return nil
}
