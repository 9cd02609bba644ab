package cliplugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mcast/internal/intent"
	"mcast/internal/transmitter"
)

type SendCommand struct {
	cmd  *cobra.Command
	deps *Deps
}

func NewSendCommand(deps *Deps) *SendCommand {
	return &SendCommand{deps: deps}
}

func (s *SendCommand) Meta() *cobra.Command {
	if s.cmd != nil {
		return s.cmd
	}
	s.cmd = &cobra.Command{
		Use:   "send [payload]",
		Short: "Send one datagram to the multicast endpoint",
		Long: "Sends the payload as a single datagram. With --action the payload becomes the data " +
			"of an intent. With --watch the file content is sent every time the file is written.",
		Args: cobra.MaximumNArgs(1),
	}
	addEndpointFlags(s.cmd)
	s.cmd.Flags().String("action", "", "send an intent with this action")
	s.cmd.Flags().StringSliceP("extra", "e", nil, "intent string extra as key=value")
	s.cmd.Flags().StringSliceP("category", "c", nil, "intent category")
	s.cmd.Flags().String("watch", "", "retransmit this file on every write")
	return s.cmd
}

func (s *SendCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	const op = "cliplugins.SendCommand.Execute"
	log := s.deps.logger().With(slog.String("op", op))

	action, err := cmd.Flags().GetString("action")
	if err != nil {
		return fmt.Errorf("flag --action failed")
	}
	extras, err := cmd.Flags().GetStringSlice("extra")
	if err != nil {
		return fmt.Errorf("flag --extra failed")
	}
	categories, err := cmd.Flags().GetStringSlice("category")
	if err != nil {
		return fmt.Errorf("flag --category failed")
	}
	watch, err := cmd.Flags().GetString("watch")
	if err != nil {
		return fmt.Errorf("flag --watch failed")
	}

	endpoint := s.deps.endpoint(cmd)
	t := transmitter.New(endpoint,
		transmitter.WithCodec(s.deps.codec()),
		transmitter.WithLogger(s.deps.logger()),
		transmitter.WithSocketOptions(s.deps.socketOptions(cmd)...),
	)

	if watch != "" {
		log.Info("watching file", slog.String("path", watch), slog.String("endpoint", endpoint.String()))
		return t.WatchFile(ctx, watch, transmitter.DefaultDebounce)
	}

	if len(args) == 0 {
		return fmt.Errorf("payload is required unless --watch is set")
	}
	payload := args[0]

	if action == "" && len(extras) == 0 && len(categories) == 0 {
		if err := t.Transmit([]byte(payload)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes to %s\n", len(payload), endpoint)
		return nil
	}

	if action == "" {
		action = intent.ActionView
	}
	in := intent.New(action)
	in.Data = payload
	for _, c := range categories {
		in.AddCategory(c)
	}
	if err := parseExtras(in, extras); err != nil {
		return err
	}

	if err := t.TransmitIntent(in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent intent %s to %s\n", in.Action, endpoint)
	return nil
}
