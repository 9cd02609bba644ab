// Package socket owns the UDP endpoints used for multicast discovery and
// transmission. A Conn is opened either for receiving (bound to a port and,
// for multicast addresses, joined to the group) or for sending (ephemeral
// port with multicast send options).
package socket

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/ipv4"
)

// Conn is a multicast capable UDP socket. Close may be called from any
// goroutine, including while another goroutine is blocked in ReadFrom.
type Conn struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	group *net.UDPAddr
	ifi   *net.Interface

	closeOnce sync.Once
	closeErr  error
}

// OpenForReceive binds the endpoint's port on all interfaces and joins the
// endpoint's group when its address is a multicast address.
func OpenForReceive(e Endpoint, opts ...Option) (*Conn, error) {
	const op = "socket.OpenForReceive"
	o := newOptions(opts)

	group, err := Resolve(e)
	if err != nil {
		return nil, err
	}

	ifi, err := o.netInterface()
	if err != nil {
		return nil, &BindError{Op: op, Address: e.String(), Err: err}
	}

	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", e.Port))
	if err != nil {
		return nil, &BindError{Op: op, Address: e.String(), Err: err}
	}
	udpConn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, &BindError{Op: op, Address: e.String(), Err: ErrNotUDP}
	}

	c := &Conn{
		conn: udpConn,
		pc:   ipv4.NewPacketConn(udpConn),
	}

	if o.readBuffer > 0 {
		if err := udpConn.SetReadBuffer(o.readBuffer); err != nil {
			udpConn.Close()
			return nil, &BindError{Op: op, Address: e.String(), Err: err}
		}
	}

	if group.IP.IsMulticast() {
		if err := c.pc.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
			udpConn.Close()
			return nil, &BindError{Op: op, Address: e.String(), Err: err}
		}
		c.group = group
		c.ifi = ifi
	}

	return c, nil
}

// OpenForSend opens an ephemeral UDP socket configured for multicast
// sending. It can also receive replies addressed to its local port.
func OpenForSend(opts ...Option) (*Conn, error) {
	const op = "socket.OpenForSend"
	o := newOptions(opts)

	ifi, err := o.netInterface()
	if err != nil {
		return nil, &BindError{Op: op, Err: err}
	}

	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, &BindError{Op: op, Err: err}
	}

	c := &Conn{
		conn: udpConn,
		pc:   ipv4.NewPacketConn(udpConn),
	}

	var result *multierror.Error
	if err := c.pc.SetMulticastTTL(o.ttl); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.pc.SetMulticastLoopback(o.loopback); err != nil {
		result = multierror.Append(result, err)
	}
	if ifi != nil {
		if err := c.pc.SetMulticastInterface(ifi); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		udpConn.Close()
		return nil, &BindError{Op: op, Err: err}
	}

	return c, nil
}

// ReadFrom blocks until a datagram arrives, the read deadline passes or the
// socket is closed.
func (c *Conn) ReadFrom(b []byte) (int, *net.UDPAddr, error) {
	return c.conn.ReadFromUDP(b)
}

func (c *Conn) WriteTo(b []byte, addr *net.UDPAddr) (int, error) {
	return c.conn.WriteToUDP(b, addr)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Conn) LocalAddr() *net.UDPAddr {
	addr, _ := c.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Group returns the joined multicast group, or nil when none was joined.
func (c *Conn) Group() *net.UDPAddr {
	return c.group
}

// Close leaves the group and closes the socket. Only the first call does
// any work.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		var result *multierror.Error
		if c.group != nil {
			if err := c.pc.LeaveGroup(c.ifi, &net.UDPAddr{IP: c.group.IP}); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if err := c.conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		c.closeErr = result.ErrorOrNil()
	})
	return c.closeErr
}
