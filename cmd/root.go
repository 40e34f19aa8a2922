// Package cmd implements the toolgate command line interface.
package cmd

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/toolgate/toolgate/client"
	"github.com/toolgate/toolgate/pkg/version"
)

type subCommandGroup string

const (
	subCommandGroupBasic subCommandGroup = "basic"
)

const (
	// ServerURLEnvVar overrides the default server URL for client commands.
	ServerURLEnvVar = "TOOLGATE_SERVER_URL"
	// TokenEnvVar supplies the bearer credential for client commands.
	TokenEnvVar = "TOOLGATE_TOKEN"

	serverURLDefault = "http://127.0.0.1:8080"
)

var (
	rootCmdServerURL string
	rootCmdToken     string

	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:     "toolgate",
	Short:   "ToolGate is an authenticated gateway for LLM-backed tools",
	Version: version.GetVersion(),
	Long: "ToolGate exposes a small set of model-backed tools (chat, conversation, document\n" +
		"analysis, translation) over authenticated HTTP, forwarding calls to an\n" +
		"OpenAI-compatible backend.\n\n" +
		"Run 'toolgate start' to start the server, or use the client commands to talk to a\n" +
		"running instance.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		serverURL := rootCmdServerURL
		if serverURL == "" {
			serverURL = os.Getenv(ServerURLEnvVar)
		}
		if serverURL == "" {
			serverURL = serverURLDefault
		}
		token := rootCmdToken
		if token == "" {
			token = os.Getenv(TokenEnvVar)
		}
		apiClient = client.NewClient(serverURL, token, http.DefaultClient)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootCmdServerURL,
		"server",
		"",
		"URL of the toolgate server (overrides env var "+ServerURLEnvVar+")",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootCmdToken,
		"token",
		"",
		"bearer credential for authenticated commands (overrides env var "+TokenEnvVar+")",
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
