package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is what every command works with: the gateway client and the
// persisted state.
type session struct {
	statePath string
	state     *clientState
	api       *apiClient
}

func newRootCmd() *cobra.Command {
	s := &session{}
	var server string

	root := &cobra.Command{
		Use:   "jan-chat",
		Short: "Terminal client for the jan-chat gateway",
		Long: `jan-chat talks to a jan-chat gateway: sign in, manage conversations,
send messages and follow replies live.

Examples:
  jan-chat signin --email me@example.com
  jan-chat new "Trip planning"
  jan-chat send <conversation-id> "Hello"
  jan-chat watch <conversation-id>`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(s.statePath)
			if err != nil {
				return err
			}
			s.state = state
			s.api = newAPIClient(server, state.accessToken())
			return nil
		},
	}

	defaultServer := os.Getenv("JAN_CHAT_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8090"
	}
	root.PersistentFlags().StringVar(&server, "server", defaultServer, "Gateway base URL")
	root.PersistentFlags().StringVar(&s.statePath, "state", defaultStatePath(), "Client state file")

	root.AddCommand(
		newSignUpCmd(s),
		newSignInCmd(s),
		newSignOutCmd(s),
		newChatsCmd(s),
		newNewCmd(s),
		newRenameCmd(s),
		newDeleteCmd(s),
		newHistoryCmd(s),
		newSendCmd(s),
		newWatchCmd(s),
		newThemeCmd(s),
	)
	return root
}
