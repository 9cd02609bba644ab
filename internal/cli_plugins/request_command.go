package cliplugins

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcast/internal/udp"
)

type RequestCommand struct {
	cmd  *cobra.Command
	deps *Deps
}

func NewRequestCommand(deps *Deps) *RequestCommand {
	return &RequestCommand{deps: deps}
}

func (r *RequestCommand) Meta() *cobra.Command {
	if r.cmd != nil {
		return r.cmd
	}
	r.cmd = &cobra.Command{
		Use:   "request <payload>",
		Short: "Send a datagram and print the replies",
		Long: "Sends the payload and waits for a reply. With --many every reply that arrives " +
			"before the timeout is printed.",
		Args: cobra.ExactArgs(1),
	}
	addEndpointFlags(r.cmd)
	r.cmd.Flags().BoolP("many", "m", false, "collect every reply until the timeout")
	r.cmd.Flags().DurationP("timeout", "t", 0, "how long to wait for replies (default from config)")
	return r.cmd
}

func (r *RequestCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	many, err := cmd.Flags().GetBool("many")
	if err != nil {
		return fmt.Errorf("flag --many failed")
	}
	timeout := r.deps.Config.Request.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	endpoint := r.deps.endpoint(cmd)
	payload := []byte(args[0])
	opts := []udp.Option{
		udp.WithGracePeriod(r.deps.Config.Request.Grace),
		udp.WithMaxPacketBytes(r.deps.Config.Multicast.MaxPacketBytes),
		udp.WithSocketOptions(r.deps.socketOptions(cmd)...),
		udp.WithLogger(r.deps.logger()),
	}
	out := cmd.OutOrStdout()

	if !many {
		reply, err := udp.Exchange(ctx, endpoint, payload, timeout, opts...)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("no reply from %s within %s", endpoint, timeout)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(reply))
		return nil
	}

	replies, err := udp.Collect(ctx, endpoint, payload, timeout, opts...)
	for _, reply := range replies {
		fmt.Fprintln(out, string(reply))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d replies\n", len(replies))
	return nil
}
