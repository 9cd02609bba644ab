package discovery

import (
	"bytes"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcast/internal/intent"
	"mcast/internal/socket"
	"mcast/internal/transmitter"
)

func TestDiscovery_EnableDisable(t *testing.T) {
	d := New(socket.NewEndpoint("127.0.0.1", 0))
	rec := newRecorder()

	assert.False(t, d.Enabled())
	require.NoError(t, d.Enable(rec))
	assert.True(t, d.Enabled())

	th := d.Thread()
	require.NotNil(t, th)
	require.Eventually(t, func() bool {
		return th.State() == StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	d.Disable()
	assert.False(t, d.Enabled())
	waitStopped(t, th)

	assert.Equal(t, []string{"started", "stopped"}, rec.Events())

	assert.NotPanics(t, d.Disable)
}

func TestDiscovery_EnableNilListener(t *testing.T) {
	d := New(socket.DefaultEndpoint())
	assert.ErrorIs(t, d.Enable(nil), ErrNilListener)
	assert.False(t, d.Enabled())
}

func TestDiscovery_EnableTwice(t *testing.T) {
	d := New(socket.NewEndpoint("127.0.0.1", 0))
	first, second := newRecorder(), newRecorder()

	require.NoError(t, d.Enable(first))
	firstThread := d.Thread()
	require.NoError(t, d.Enable(second))
	secondThread := d.Thread()

	assert.NotSame(t, firstThread, secondThread)

	d.Disable()
	waitStopped(t, secondThread)

	// the replaced session is no longer managed by the facade
	assert.Equal(t, 0, first.count("stopped"))
	firstThread.Stop()
	waitStopped(t, firstThread)
	assert.Equal(t, 1, first.count("stopped"))
}

func TestAdapter_OnErrorLogs(t *testing.T) {
	var buf bytes.Buffer
	a := Adapter{Log: slog.New(slog.NewTextHandler(&buf, nil))}

	assert.NotPanics(t, func() {
		a.OnStarted()
		a.OnMessage(&net.UDPAddr{}, nil, nil)
		a.OnStopped()
		a.OnError(errors.New("boom"))
	})
	assert.Contains(t, buf.String(), "discovery error")
	assert.Contains(t, buf.String(), "boom")
}

type onlyMessages struct {
	Adapter
	got chan string
}

func (o *onlyMessages) OnMessage(_ *net.UDPAddr, data []byte, _ *intent.Intent) {
	o.got <- string(data)
}

func TestAdapter_PartialListener(t *testing.T) {
	l := &onlyMessages{got: make(chan string, 1)}
	_, endpoint := startLoopback(t, l)

	require.NoError(t, transmitter.New(endpoint).Transmit([]byte("hi")))

	select {
	case got := <-l.got:
		assert.Equal(t, "hi", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestFuncs(t *testing.T) {
	var calls []string
	f := Funcs{
		Started: func() { calls = append(calls, "started") },
		Message: func(*net.UDPAddr, []byte, *intent.Intent) { calls = append(calls, "message") },
		Stopped: func() { calls = append(calls, "stopped") },
		Error:   func(error) { calls = append(calls, "error") },
	}

	f.OnStarted()
	f.OnMessage(nil, nil, nil)
	f.OnError(errors.New("x"))
	f.OnStopped()

	assert.Equal(t, []string{"started", "message", "error", "stopped"}, calls)

	var buf bytes.Buffer
	empty := Funcs{Log: slog.New(slog.NewTextHandler(&buf, nil))}
	assert.NotPanics(t, func() {
		empty.OnStarted()
		empty.OnMessage(nil, nil, nil)
		empty.OnStopped()
		empty.OnError(errors.New("fallback"))
	})
	assert.Contains(t, buf.String(), "fallback")
}

func TestListeners_FanOut(t *testing.T) {
	var a, b []string
	track := func(dst *[]string) Funcs {
		return Funcs{
			Started: func() { *dst = append(*dst, "started") },
			Message: func(_ *net.UDPAddr, data []byte, _ *intent.Intent) { *dst = append(*dst, string(data)) },
			Stopped: func() { *dst = append(*dst, "stopped") },
			Error:   func(error) { *dst = append(*dst, "error") },
		}
	}

	ls := Listeners{track(&a), track(&b)}
	ls.OnStarted()
	ls.OnMessage(nil, []byte("x"), nil)
	ls.OnError(errors.New("boom"))
	ls.OnStopped()

	want := []string{"started", "x", "error", "stopped"}
	assert.Equal(t, want, a)
	assert.Equal(t, want, b)
}
