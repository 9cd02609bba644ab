package cliplugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mcast/internal/discovery"
	"mcast/internal/transmitter"
	"mcast/internal/udp"
)

type RespondCommand struct {
	cmd  *cobra.Command
	deps *Deps
}

func NewRespondCommand(deps *Deps) *RespondCommand {
	return &RespondCommand{deps: deps}
}

func (r *RespondCommand) Meta() *cobra.Command {
	if r.cmd != nil {
		return r.cmd
	}
	r.cmd = &cobra.Command{
		Use:   "respond",
		Short: "Answer every received datagram",
		Long:  "Listens on the endpoint and sends a reply to the sender of every datagram. Without --reply the request is echoed.",
		Args:  cobra.NoArgs,
	}
	addEndpointFlags(r.cmd)
	r.cmd.Flags().StringP("reply", "r", "", "fixed reply payload")
	r.cmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	return r.cmd
}

func (r *RespondCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	const op = "cliplugins.RespondCommand.Execute"
	log := r.deps.logger().With(slog.String("op", op))

	duration, err := cmd.Flags().GetDuration("duration")
	if err != nil {
		return fmt.Errorf("flag --duration failed")
	}
	reply := udp.Echo()
	if cmd.Flags().Changed("reply") {
		text, _ := cmd.Flags().GetString("reply")
		reply = udp.StaticReply([]byte(text))
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	endpoint := r.deps.endpoint(cmd)
	responder := udp.NewResponder(reply, r.deps.logger(),
		transmitter.WithSocketOptions(r.deps.socketOptions(cmd)...),
		transmitter.WithMetricsLabel(endpoint.String()),
	)

	failed := make(chan error, 1)
	d := discovery.New(endpoint,
		discovery.WithCodec(r.deps.codec()),
		discovery.WithLogger(r.deps.logger()),
		discovery.WithSocketOptions(r.deps.socketOptions(cmd)...),
		discovery.WithMaxPacketBytes(r.deps.Config.Multicast.MaxPacketBytes),
	)
	err = d.Enable(discovery.Listeners{responder, discovery.Funcs{
		Error: func(err error) { failed <- err },
	}})
	if err != nil {
		return err
	}
	th := d.Thread()
	log.Info("responding", slog.String("endpoint", endpoint.String()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-failed:
	}

	d.Disable()
	th.Wait()

	return runErr
}
