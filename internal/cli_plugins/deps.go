package cliplugins

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mcast/internal/config"
	"mcast/internal/intent"
	"mcast/internal/socket"
	"mcast/internal/util/logger/handlers/slogdiscard"
)

// Deps is shared by all commands. The root command fills it in before any
// command runs, once flags are parsed.
type Deps struct {
	Config *config.Config
	Log    *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slogdiscard.NewDiscardLogger()
	}
	return d.Log
}

// codec compresses intents when enabled. Raw payloads are never compressed,
// so the receiving side still accepts datagrams that are not LZ4 blocks.
func (d *Deps) codec() intent.Codec {
	if d.Config.Multicast.Compress {
		return intent.LZ4Codec{Codec: intent.URICodec{}, AcceptPlain: true}
	}
	return intent.DefaultCodec()
}

func (d *Deps) socketOptions(cmd *cobra.Command) []socket.Option {
	mc := d.Config.Multicast

	iface := mc.Interface
	if cmd.Flags().Changed("interface") {
		iface, _ = cmd.Flags().GetString("interface")
	}

	return []socket.Option{
		socket.WithInterface(iface),
		socket.WithTTL(mc.TTL),
		socket.WithLoopback(mc.Loopback),
	}
}

// endpoint returns the configured endpoint with flag overrides applied.
func (d *Deps) endpoint(cmd *cobra.Command) socket.Endpoint {
	e := socket.NewEndpoint(d.Config.Multicast.Address, d.Config.Multicast.Port)

	if cmd.Flags().Changed("address") {
		e.Address, _ = cmd.Flags().GetString("address")
	}
	if cmd.Flags().Changed("port") {
		e.Port, _ = cmd.Flags().GetUint16("port")
	}
	return e
}

func addEndpointFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("address", "a", socket.DefaultMulticastAddress, "multicast group or host address")
	cmd.Flags().Uint16P("port", "p", socket.DefaultPort, "UDP port")
	cmd.Flags().StringP("interface", "i", "", "network interface name")
}

// describe renders a received message for the terminal. Plain text payloads
// are shown as is, everything else as an intent URI.
func describe(data []byte, in *intent.Intent) string {
	if in == nil {
		return fmt.Sprintf("%q", data)
	}
	if in.Action == intent.ActionView && len(in.Categories) == 0 && len(in.Extras) == 0 &&
		in.Type == "" && in.Package == "" {
		return in.Data
	}
	uri, err := in.URI()
	if err != nil {
		return fmt.Sprintf("%q", data)
	}
	return uri
}

// parseExtras turns key=value pairs into string extras.
func parseExtras(in *intent.Intent, pairs []string) error {
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid extra %q, expected key=value", pair)
		}
		in.PutExtra(k, v)
	}
	return nil
}
