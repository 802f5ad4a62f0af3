package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/client"
	"github.com/alfredjeanlab/emithub/internal/model"
)

var publishCmd = &cobra.Command{
	Use:     "publish <channel-id> [content]",
	Short:   "Broadcast a message to a channel (reads stdin when content is omitted)",
	GroupID: "channels",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChannelID(args[0])
		if err != nil {
			return err
		}
		content, err := publishContent(args[1:], os.Stdin)
		if err != nil {
			return err
		}
		typ, _ := cmd.Flags().GetString("type")
		msgType, ok := model.ParseMessageType(typ)
		if !ok {
			return fmt.Errorf("invalid message type %q", typ)
		}

		resp, err := hubClient.Broadcast(context.Background(), id, &client.BroadcastRequest{
			Content:     content,
			MessageType: msgType,
		})
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		if jsonOutput {
			printJSON(resp)
			return nil
		}
		fmt.Printf("Published %s to %d session(s)\n", resp.Message.ID, resp.SentTo)
		return nil
	},
}

// publishContent returns the content argument, or stdin with the trailing
// newline removed when no argument was given.
func publishContent(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the emithub service",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := hubClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			printJSON(resp)
		} else {
			fmt.Printf("Health: %s (%s %s)\n", resp.Status, resp.Service, resp.Version)
		}

		if resp.Status != "healthy" {
			return fmt.Errorf("unhealthy: %s", resp.Status)
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().String("type", string(model.MessageBroadcast), "message type (broadcast, system, status_update)")
}
