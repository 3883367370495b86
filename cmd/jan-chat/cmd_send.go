package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
)

func newSendCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <text...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message is empty")
			}
			result, err := s.api.sendMessage(cmd.Context(), args[0], text)
			if err != nil {
				var failure *sendFailure
				if errors.As(err, &failure) {
					return fmt.Errorf("your message was saved but no reply arrived: %w", err)
				}
				return err
			}
			if result.AssistantMessage != nil {
				fmt.Fprintln(cmd.OutOrStdout(), result.AssistantMessage.Content)
			}
			return nil
		},
	}
}

func newWatchCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [conversation-id]",
		Short: "Follow a conversation live, or the conversation list without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				return ignoreCancel(ctx.Err, s.api.streamEvents(ctx, "/v1/conversations/stream", func(name string, data []byte) error {
					if name != "conversations" {
						return nil
					}
					var list responses.ListResponse[responses.SummaryResponse]
					if err := json.Unmarshal(data, &list); err != nil {
						return fmt.Errorf("decode conversations: %w", err)
					}
					fmt.Fprintln(out, "---")
					printSummaries(out, list.Data)
					return nil
				}))
			}

			return ignoreCancel(ctx.Err, s.api.streamEvents(ctx, conversationPath(args[0], "messages", "stream"), func(name string, data []byte) error {
				switch name {
				case "message":
					var m responses.MessageResponse
					if err := json.Unmarshal(data, &m); err != nil {
						return fmt.Errorf("decode message: %w", err)
					}
					printMessage(out, &m)
				case "state":
					var st responses.StateResponse
					if err := json.Unmarshal(data, &st); err != nil {
						return fmt.Errorf("decode state: %w", err)
					}
					if st.State == "sending" {
						fmt.Fprintln(out, "… waiting for a reply")
					}
				case "error":
					return fmt.Errorf("stream closed by gateway: %s", data)
				}
				return nil
			}))
		},
	}
}

// ignoreCancel hides the error caused by the user interrupting a stream.
func ignoreCancel(ctxErr func() error, err error) error {
	if err != nil && ctxErr() != nil {
		return nil
	}
	return err
}
