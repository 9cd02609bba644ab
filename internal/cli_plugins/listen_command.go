package cliplugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mcast/internal/discovery"
	"mcast/internal/intent"
	"mcast/internal/storage/history"
	"mcast/internal/util/logger/sl"
)

type ListenCommand struct {
	cmd  *cobra.Command
	deps *Deps
}

func NewListenCommand(deps *Deps) *ListenCommand {
	return &ListenCommand{deps: deps}
}

func (l *ListenCommand) Meta() *cobra.Command {
	if l.cmd != nil {
		return l.cmd
	}
	l.cmd = &cobra.Command{
		Use:   "listen",
		Short: "Print datagrams received on the multicast endpoint",
		Long:  "Joins the multicast group and prints every received message until interrupted.",
		Args:  cobra.NoArgs,
	}
	addEndpointFlags(l.cmd)
	l.cmd.Flags().Bool("record", false, "save received messages to the history store")
	l.cmd.Flags().String("metrics", "", "serve prometheus metrics on this address")
	l.cmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	return l.cmd
}

func (l *ListenCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	const op = "cliplugins.ListenCommand.Execute"
	log := l.deps.logger().With(slog.String("op", op))

	record, err := cmd.Flags().GetBool("record")
	if err != nil {
		return fmt.Errorf("flag --record failed")
	}
	duration, err := cmd.Flags().GetDuration("duration")
	if err != nil {
		return fmt.Errorf("flag --duration failed")
	}
	metricsAddr := l.deps.Config.Metrics.Address
	if cmd.Flags().Changed("metrics") {
		metricsAddr, _ = cmd.Flags().GetString("metrics")
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	endpoint := l.deps.endpoint(cmd)
	out := cmd.OutOrStdout()

	var mu sync.Mutex
	printer := discovery.Funcs{
		Message: func(addr *net.UDPAddr, data []byte, in *intent.Intent) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s %s\n", addr, describe(data, in))
		},
		Log: log,
	}
	listeners := discovery.Listeners{printer}

	if record {
		store, err := history.New(history.Config{Path: l.deps.Config.Storage.Path})
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		listeners = append(listeners, history.NewRecorder(store, endpoint.String(), log))
	}

	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr, log)
		defer stop()
	}

	d := discovery.New(endpoint,
		discovery.WithCodec(l.deps.codec()),
		discovery.WithLogger(l.deps.logger()),
		discovery.WithSocketOptions(l.deps.socketOptions(cmd)...),
		discovery.WithMaxPacketBytes(l.deps.Config.Multicast.MaxPacketBytes),
	)

	failed := make(chan error, 1)
	listeners = append(listeners, discovery.Funcs{
		Error: func(err error) { failed <- err },
	})

	if err := d.Enable(listeners); err != nil {
		return err
	}
	th := d.Thread()
	log.Info("listening", slog.String("endpoint", endpoint.String()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-failed:
	}

	d.Disable()
	th.Wait()

	return runErr
}

func serveMetrics(addr string, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", sl.Err(err))
		}
	}()
	log.Info("serving metrics", slog.String("address", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
