package cliplugins

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcast/internal/config"
	"mcast/internal/discovery"
	"mcast/internal/intent"
	"mcast/internal/metrics"
	"mcast/internal/socket"
	"mcast/internal/storage/history"
	"mcast/internal/transmitter"
	"mcast/internal/udp"
	"mcast/internal/util/logger/handlers/slogdiscard"
	"mcast/pkg/cli"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()

	return &Deps{
		Config: &config.Config{
			Env: "local",
			Multicast: config.Multicast{
				Address:        "127.0.0.1",
				Port:           socket.DefaultPort,
				MaxPacketBytes: socket.MaxPacketBytes,
				TTL:            1,
				Loopback:       true,
			},
			Request: config.Request{
				Timeout: time.Second,
				Grace:   10 * time.Millisecond,
			},
			Storage: config.Storage{Path: filepath.Join(t.TempDir(), "history.db")},
		},
		Log: slogdiscard.NewDiscardLogger(),
	}
}

func run(ctx context.Context, plugin cli.CommandPlugin, args ...string) (string, error) {
	c := cli.NewCLI(ctx, "mcast", "test")
	c.RegisterPlugin(plugin)

	var out bytes.Buffer
	c.Root().SetOut(&out)

	err := c.RunWithArgs(append([]string{plugin.Meta().Name()}, args...))
	return out.String(), err
}

func freePort(t *testing.T) uint16 {
	t.Helper()

	conn, err := socket.OpenForSend()
	require.NoError(t, err)
	port := conn.LocalAddr().Port
	require.NoError(t, conn.Close())
	return uint16(port)
}

func openReceiver(t *testing.T) (*socket.Conn, string) {
	t.Helper()

	conn, err := socket.OpenForReceive(socket.NewEndpoint("127.0.0.1", 0))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, strconv.Itoa(conn.LocalAddr().Port)
}

func readDatagram(t *testing.T, conn *socket.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestSendCommand_Raw(t *testing.T) {
	conn, port := openReceiver(t)

	out, err := run(context.Background(), NewSendCommand(testDeps(t)), "-a", "127.0.0.1", "-p", port, "PING")
	require.NoError(t, err)
	assert.Contains(t, out, "sent 4 bytes")

	assert.Equal(t, []byte("PING"), readDatagram(t, conn))
}

func TestSendCommand_Intent(t *testing.T) {
	conn, port := openReceiver(t)

	_, err := run(context.Background(), NewSendCommand(testDeps(t)),
		"-a", "127.0.0.1", "-p", port,
		"--action", "com.example.PING",
		"-e", "who=me",
		"-c", "com.example.TEST",
		"hello",
	)
	require.NoError(t, err)

	in, err := intent.Parse(readDatagram(t, conn))
	require.NoError(t, err)
	assert.Equal(t, "com.example.PING", in.Action)
	assert.Equal(t, "hello", in.Data)
	assert.Equal(t, []string{"com.example.TEST"}, in.Categories)
	who, ok := in.StringExtra("who")
	assert.True(t, ok)
	assert.Equal(t, "me", who)
}

func TestSendCommand_Errors(t *testing.T) {
	_, err := run(context.Background(), NewSendCommand(testDeps(t)), "-a", "127.0.0.1")
	assert.Error(t, err)

	_, err = run(context.Background(), NewSendCommand(testDeps(t)), "-a", "127.0.0.1", "-e", "novalue", "x")
	assert.Error(t, err)
}

func startResponder(t *testing.T, reply udp.ReplyFunc) string {
	t.Helper()

	th := discovery.NewThread(socket.NewEndpoint("127.0.0.1", 0), udp.NewResponder(reply, nil))
	require.NoError(t, th.Start())
	t.Cleanup(func() {
		th.Stop()
		th.Wait()
	})

	require.Eventually(t, func() bool {
		return th.State() == discovery.StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	return strconv.Itoa(th.LocalAddr().Port)
}

func TestRequestCommand_Single(t *testing.T) {
	port := startResponder(t, udp.StaticReply([]byte("PONG")))

	out, err := run(context.Background(), NewRequestCommand(testDeps(t)), "-a", "127.0.0.1", "-p", port, "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", out)
}

func TestRequestCommand_Many(t *testing.T) {
	port := startResponder(t, udp.Echo())

	out, err := run(context.Background(), NewRequestCommand(testDeps(t)),
		"-a", "127.0.0.1", "-p", port, "--many", "-t", "300ms", "PING")
	require.NoError(t, err)
	assert.Contains(t, out, "PING\n")
	assert.Contains(t, out, "1 replies")
}

func TestRequestCommand_NoReply(t *testing.T) {
	_, port := openReceiver(t)

	_, err := run(context.Background(), NewRequestCommand(testDeps(t)),
		"-a", "127.0.0.1", "-p", port, "-t", "200ms", "PING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reply")
}

func TestListenCommand_PrintsAndRecords(t *testing.T) {
	deps := testDeps(t)
	port := freePort(t)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(context.Background(), NewListenCommand(deps),
			"-a", "127.0.0.1", "-p", strconv.Itoa(int(port)), "--record", "--duration", "1s")
		done <- result{out, err}
	}()

	var res result
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case res = <-done:
			break loop
		case <-ticker.C:
			_ = udp.Send("127.0.0.1", port, []byte("PING"))
		}
	}

	require.NoError(t, res.err)
	assert.Contains(t, res.out, "PING")

	store, err := history.New(history.Config{Path: deps.Config.Storage.Path})
	require.NoError(t, err)
	defer store.Close()

	records, err := store.List(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PING", string(records[0].Payload))
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(int(port)), records[0].Endpoint)
}

func TestRespondCommand(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run("compress="+strconv.FormatBool(compress), func(t *testing.T) {
			deps := testDeps(t)
			deps.Config.Multicast.Compress = compress
			port := strconv.Itoa(int(freePort(t)))

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				_, err := run(ctx, NewRespondCommand(deps), "-a", "127.0.0.1", "-p", port, "--reply", "PONG")
				done <- err
			}()

			require.Eventually(t, func() bool {
				out, err := run(context.Background(), NewRequestCommand(deps),
					"-a", "127.0.0.1", "-p", port, "-t", "200ms", "PING")
				return err == nil && out == "PONG\n"
			}, 5*time.Second, 10*time.Millisecond)

			// replies are counted under the listening endpoint, not the requester
			assert.GreaterOrEqual(t,
				testutil.ToFloat64(metrics.PacketsSent.WithLabelValues("127.0.0.1:"+port)), float64(1))

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("respond did not stop")
			}
		})
	}
}

func TestListenCommand_CompressAcceptsRawAndIntents(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Multicast.Compress = true
	port := freePort(t)
	endpoint := socket.NewEndpoint("127.0.0.1", port)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(context.Background(), NewListenCommand(deps),
			"-a", "127.0.0.1", "-p", strconv.Itoa(int(port)), "--duration", "1s")
		done <- result{out, err}
	}()

	zipped := transmitter.New(endpoint, transmitter.WithCodec(deps.codec()))
	msg := intent.New("com.example.ZIP").PutExtra("n", "1")

	var res result
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case res = <-done:
			break loop
		case <-ticker.C:
			_ = udp.Send("127.0.0.1", port, []byte("PING"))
			_ = zipped.TransmitIntent(msg)
		}
	}

	require.NoError(t, res.err)
	assert.Contains(t, res.out, "PING")
	assert.Contains(t, res.out, "com.example.ZIP")
}

func TestHistoryCommand(t *testing.T) {
	deps := testDeps(t)

	store, err := history.New(history.Config{Path: deps.Config.Storage.Path})
	require.NoError(t, err)
	id, err := store.Save(&history.Record{
		Sender:  "10.0.0.7:40000",
		Payload: []byte("PING"),
		Action:  intent.ActionView,
		Data:    "PING",
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := run(context.Background(), NewHistoryCommand(deps))
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "10.0.0.7:40000")
	assert.Contains(t, out, "PING")

	out, err = run(context.Background(), NewHistoryCommand(deps), "--id", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = run(context.Background(), NewHistoryCommand(deps), "--id", "missing")
	assert.ErrorIs(t, err, history.ErrRecordNotFound)

	out, err = run(context.Background(), NewHistoryCommand(deps), "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "history cleared")

	out, err = run(context.Background(), NewHistoryCommand(deps))
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "PING", describe([]byte("PING"), &intent.Intent{Action: intent.ActionView, Data: "PING"}))

	in := intent.New("com.example.PING")
	in.PutExtra("n", 1)
	uri, err := in.URI()
	require.NoError(t, err)
	assert.Equal(t, uri, describe(nil, in))

	assert.Equal(t, `"\x00"`, describe([]byte{0}, nil))
}
