package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/model"
)

var channelCmd = &cobra.Command{
	Use:     "channel",
	Short:   "Create, inspect and control channels",
	GroupID: "channels",
}

var channelCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.CreateChannelInput{Name: args[0]}
		if cmd.Flags().Changed("description") {
			desc, _ := cmd.Flags().GetString("description")
			in.Description = &desc
		}
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		in.Settings = settings

		ch, err := hubClient.CreateChannel(context.Background(), &in)
		if err != nil {
			return fmt.Errorf("creating channel: %w", err)
		}
		if start, _ := cmd.Flags().GetBool("start"); start {
			if ch, err = hubClient.StartChannel(context.Background(), ch.ID); err != nil {
				return fmt.Errorf("starting channel: %w", err)
			}
		}
		printChannel(ch)
		return nil
	},
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-connections", model.DefaultMaxConnections, "maximum sessions (advisory)")
	cmd.Flags().Bool("allow-client-messages", true, "rebroadcast text sent by clients")
	cmd.Flags().Bool("persist", false, "persist messages to the store")
	cmd.Flags().Int("rate-limit", model.DefaultRateLimitPerMinute, "messages per minute (advisory)")
}

// settingsFromFlags returns the settings the user set explicitly, or nil
// when none were given.
func settingsFromFlags(cmd *cobra.Command) (*model.SettingsInput, error) {
	var (
		s   model.SettingsInput
		set bool
	)
	flags := cmd.Flags()
	if flags.Changed("max-connections") {
		v, err := flags.GetInt("max-connections")
		if err != nil {
			return nil, err
		}
		s.MaxConnections, set = &v, true
	}
	if flags.Changed("allow-client-messages") {
		v, err := flags.GetBool("allow-client-messages")
		if err != nil {
			return nil, err
		}
		s.AllowClientMessages, set = &v, true
	}
	if flags.Changed("persist") {
		v, err := flags.GetBool("persist")
		if err != nil {
			return nil, err
		}
		s.PersistMessages, set = &v, true
	}
	if flags.Changed("rate-limit") {
		v, err := flags.GetInt("rate-limit")
		if err != nil {
			return nil, err
		}
		s.RateLimitPerMinute, set = &v, true
	}
	if !set {
		return nil, nil
	}
	return &s, nil
}

var channelListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List channels",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := hubClient.ListChannels(context.Background())
		if err != nil {
			return fmt.Errorf("listing channels: %w", err)
		}
		if jsonOutput {
			printJSON(resp.Channels)
			return nil
		}
		printChannelListTable(resp.Channels, resp.Total)
		return nil
	},
}

var channelShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChannelID(args[0])
		if err != nil {
			return err
		}
		ch, err := hubClient.GetChannel(context.Background(), id)
		if err != nil {
			return fmt.Errorf("getting channel: %w", err)
		}
		printChannel(ch)
		return nil
	},
}

type lifecycleCall func(ctx context.Context, id uuid.UUID) (*model.Channel, error)

// lifecycleCmd builds a start/pause/stop subcommand.
func lifecycleCmd(use, short string, call func() lifecycleCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			ch, err := call()(context.Background(), id)
			if err != nil {
				return fmt.Errorf("%s channel: %w", use, err)
			}
			printChannel(ch)
			return nil
		},
	}
}

var channelStatusCmd = &cobra.Command{
	Use:   "status <id> <created|active|paused|stopped>",
	Short: "Set a channel's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChannelID(args[0])
		if err != nil {
			return err
		}
		status, ok := model.ParseChannelStatus(args[1])
		if !ok {
			return fmt.Errorf("invalid status %q", args[1])
		}
		ch, err := hubClient.SetChannelStatus(context.Background(), id, status)
		if err != nil {
			return fmt.Errorf("setting status: %w", err)
		}
		printChannel(ch)
		return nil
	},
}

func parseChannelID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid channel id %q: %w", s, err)
	}
	return id, nil
}

func init() {
	channelCreateCmd.Flags().String("description", "", "channel description")
	addSettingsFlags(channelCreateCmd)
	channelCreateCmd.Flags().Bool("start", false, "start the channel after creating it")

	channelCmd.AddCommand(
		channelCreateCmd,
		channelListCmd,
		channelShowCmd,
		lifecycleCmd("start", "Start a channel", func() lifecycleCall { return hubClient.StartChannel }),
		lifecycleCmd("pause", "Pause a channel", func() lifecycleCall { return hubClient.PauseChannel }),
		lifecycleCmd("stop", "Stop a channel and disconnect its sessions", func() lifecycleCall { return hubClient.StopChannel }),
		channelStatusCmd,
	)
}
