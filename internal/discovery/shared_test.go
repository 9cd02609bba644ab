package discovery

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcast/internal/intent"
	"mcast/internal/socket"
)

type received struct {
	addr *net.UDPAddr
	data []byte
	in   *intent.Intent
}

// recorder is a Listener that keeps every callback for later assertions.
type recorder struct {
	mu       sync.Mutex
	events   []string
	errs     []error
	messages chan received
}

func newRecorder() *recorder {
	return &recorder{messages: make(chan received, 64)}
}

func (r *recorder) OnStarted() {
	r.record("started")
}

func (r *recorder) OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent) {
	r.record("message")
	r.messages <- received{addr: addr, data: data, in: in}
}

func (r *recorder) OnStopped() {
	r.record("stopped")
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.record("error")
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.Events() {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) next(t *testing.T) received {
	t.Helper()

	select {
	case m := <-r.messages:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return received{}
	}
}

// startLoopback starts a thread on an ephemeral loopback port and returns
// the endpoint a transmitter has to use to reach it.
func startLoopback(t *testing.T, l Listener, opts ...Option) (*Thread, socket.Endpoint) {
	t.Helper()

	th := NewThread(socket.NewEndpoint("127.0.0.1", 0), l, opts...)
	require.NoError(t, th.Start())
	t.Cleanup(func() {
		th.Stop()
		th.Wait()
	})

	require.Eventually(t, func() bool {
		return th.State() == StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	return th, socket.NewEndpoint("127.0.0.1", uint16(th.LocalAddr().Port))
}

func waitStopped(t *testing.T, th *Thread) {
	t.Helper()

	select {
	case <-th.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("thread did not stop")
	}
}
