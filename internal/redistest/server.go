// Package redistest runs an in-process server speaking the subset of the
// redis protocol used by the frame feed, the snapshot store and the pubsub
// control channel: PING, AUTH, SET, GET, PUBLISH, SUBSCRIBE and UNSUBSCRIBE.
package redistest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type Server struct {
	ln net.Listener
	wg sync.WaitGroup

	m               sync.Mutex
	data            map[string][]byte
	conns           map[*conn]struct{}
	refuseSubscribe bool
}

type conn struct {
	net.Conn
	wm       sync.Mutex
	w        *bufio.Writer
	channels map[string]struct{}
}

// NewServer listens on a random local port until the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to listen: %v", err)
	}

	s := &Server{
		ln:    ln,
		data:  make(map[string][]byte),
		conns: make(map[*conn]struct{}),
	}

	s.wg.Add(1)
	go s.accept()

	tb.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// RefuseSubscribe makes the server drop any connection sending SUBSCRIBE
// while other commands keep working.
func (s *Server) RefuseSubscribe(refuse bool) {
	s.m.Lock()
	defer s.m.Unlock()

	s.refuseSubscribe = refuse
}

func (s *Server) Get(key string) ([]byte, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.data[key]
	return v, ok
}

// Publish delivers data to every connection subscribed to channel and
// returns the number of receivers.
func (s *Server) Publish(channel string, data []byte) int {
	s.m.Lock()
	var receivers []*conn
	for c := range s.conns {
		if _, ok := c.channels[channel]; ok {
			receivers = append(receivers, c)
		}
	}
	s.m.Unlock()

	for _, c := range receivers {
		c.write(func(w *bufio.Writer) {
			writeArray(w, 3)
			writeBulk(w, []byte("message"))
			writeBulk(w, []byte(channel))
			writeBulk(w, data)
		})
	}
	return len(receivers)
}

func (s *Server) Subscribers(channel string) int {
	s.m.Lock()
	defer s.m.Unlock()

	n := 0
	for c := range s.conns {
		if _, ok := c.channels[channel]; ok {
			n++
		}
	}
	return n
}

// DropSubscribers closes every connection holding a subscription.
func (s *Server) DropSubscribers() {
	s.m.Lock()
	defer s.m.Unlock()

	for c := range s.conns {
		if len(c.channels) > 0 {
			c.channels = make(map[string]struct{})
			delete(s.conns, c)
			_ = c.Close()
		}
	}
}

func (s *Server) Close() {
	_ = s.ln.Close()

	s.m.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.m.Unlock()

	s.wg.Wait()
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}

		c := &conn{Conn: nc, w: bufio.NewWriter(nc), channels: make(map[string]struct{})}
		s.m.Lock()
		s.conns[c] = struct{}{}
		s.m.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *conn) {
	defer s.wg.Done()
	defer func() {
		s.m.Lock()
		delete(s.conns, c)
		s.m.Unlock()
		_ = c.Close()
	}()

	r := bufio.NewReader(c)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if !s.handle(c, args) {
			return
		}
	}
}

func (s *Server) handle(c *conn, args [][]byte) bool {
	if len(args) == 0 {
		return true
	}

	switch strings.ToUpper(string(args[0])) {
	case "PING":
		s.m.Lock()
		subscribed := len(c.channels) > 0
		s.m.Unlock()

		c.write(func(w *bufio.Writer) {
			switch {
			case subscribed:
				writeArray(w, 2)
				writeBulk(w, []byte("pong"))
				if len(args) > 1 {
					writeBulk(w, args[1])
				} else {
					writeBulk(w, []byte{})
				}
			case len(args) > 1:
				writeBulk(w, args[1])
			default:
				_, _ = w.WriteString("+PONG\r\n")
			}
		})

	case "AUTH":
		c.write(func(w *bufio.Writer) { _, _ = w.WriteString("+OK\r\n") })

	case "SET":
		if len(args) < 3 {
			c.write(func(w *bufio.Writer) { writeError(w, "wrong number of arguments for 'set'") })
			return true
		}
		s.m.Lock()
		s.data[string(args[1])] = append([]byte(nil), args[2]...)
		s.m.Unlock()
		c.write(func(w *bufio.Writer) { _, _ = w.WriteString("+OK\r\n") })

	case "GET":
		if len(args) < 2 {
			c.write(func(w *bufio.Writer) { writeError(w, "wrong number of arguments for 'get'") })
			return true
		}
		v, ok := s.Get(string(args[1]))
		c.write(func(w *bufio.Writer) {
			if !ok {
				_, _ = w.WriteString("$-1\r\n")
				return
			}
			writeBulk(w, v)
		})

	case "PUBLISH":
		if len(args) < 3 {
			c.write(func(w *bufio.Writer) { writeError(w, "wrong number of arguments for 'publish'") })
			return true
		}
		n := s.Publish(string(args[1]), args[2])
		c.write(func(w *bufio.Writer) { _, _ = fmt.Fprintf(w, ":%d\r\n", n) })

	case "SUBSCRIBE":
		s.m.Lock()
		refuse := s.refuseSubscribe
		s.m.Unlock()
		if refuse {
			return false
		}

		for _, ch := range args[1:] {
			s.m.Lock()
			c.channels[string(ch)] = struct{}{}
			count := len(c.channels)
			s.m.Unlock()

			c.write(func(w *bufio.Writer) {
				writeArray(w, 3)
				writeBulk(w, []byte("subscribe"))
				writeBulk(w, ch)
				_, _ = fmt.Fprintf(w, ":%d\r\n", count)
			})
		}

	case "UNSUBSCRIBE":
		channels := args[1:]
		s.m.Lock()
		if len(channels) == 0 {
			for ch := range c.channels {
				channels = append(channels, []byte(ch))
			}
		}
		s.m.Unlock()

		if len(channels) == 0 {
			c.write(func(w *bufio.Writer) {
				writeArray(w, 3)
				writeBulk(w, []byte("unsubscribe"))
				_, _ = w.WriteString("$-1\r\n")
				_, _ = w.WriteString(":0\r\n")
			})
			return true
		}

		for _, ch := range channels {
			s.m.Lock()
			delete(c.channels, string(ch))
			count := len(c.channels)
			s.m.Unlock()

			c.write(func(w *bufio.Writer) {
				writeArray(w, 3)
				writeBulk(w, []byte("unsubscribe"))
				writeBulk(w, ch)
				_, _ = fmt.Fprintf(w, ":%d\r\n", count)
			})
		}

	default:
		c.write(func(w *bufio.Writer) {
			writeError(w, fmt.Sprintf("unknown command '%s'", args[0]))
		})
	}

	return true
}

func (c *conn) write(fn func(w *bufio.Writer)) {
	c.wm.Lock()
	defer c.wm.Unlock()

	fn(c.w)
	_ = c.w.Flush()
}

func readCommand(r *bufio.Reader) ([][]byte, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, fmt.Errorf("unexpected request line %q", line)
	}

	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}

	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 || line[0] != '$' {
			return nil, fmt.Errorf("unexpected bulk header %q", line)
		}
		size, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, buf[:size])
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeArray(w *bufio.Writer, n int) {
	_, _ = fmt.Fprintf(w, "*%d\r\n", n)
}

func writeBulk(w *bufio.Writer, b []byte) {
	_, _ = fmt.Fprintf(w, "$%d\r\n", len(b))
	_, _ = w.Write(b)
	_, _ = w.WriteString("\r\n")
}

func writeError(w *bufio.Writer, msg string) {
	_, _ = w.WriteString("-ERR " + msg + "\r\n")
}
