/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.osspkg.com/casecheck"
	"go.osspkg.com/errors"
	"go.osspkg.com/syncing"
	"go.osspkg.com/xc"

	"go.osspkg.com/echod/address"
	"go.osspkg.com/echod/client"
	"go.osspkg.com/echod/command"
	"go.osspkg.com/echod/epoll"
	"go.osspkg.com/echod/internal"
	"go.osspkg.com/echod/metrics"
)

var timeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\n$`)

type testServer struct {
	addr string
	srv  *epoll.Server
	ctx  xc.Context
	errC chan error
}

func startServer(t *testing.T, setup func(srv *epoll.Server)) *testServer {
	port, err := address.RandomPort("127.0.0.1")
	casecheck.NoError(t, err)

	srv := epoll.NewServer(epoll.Config{
		Host:           "127.0.0.1",
		Port:           port,
		WaitIntervalMS: 100,
	})
	if setup != nil {
		setup(srv)
	}

	ts := &testServer{
		addr: address.HostPort("127.0.0.1", port),
		srv:  srv,
		ctx:  xc.New(),
		errC: make(chan error, 1),
	}
	go func() {
		ts.errC <- srv.ListenAndServe(ts.ctx)
	}()
	t.Cleanup(func() {
		ts.ctx.Close()
		ts.wait(t)
	})

	// probe over udp so the stream counters stay untouched
	cli := newClient(t, ts.addr, "udp", 1)
	for i := 0; i < 100; i++ {
		if resp, e := cli.Do(context.Background(), []byte("ready")); e == nil {
			casecheck.Equal(t, "ready", string(resp))
			return ts
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not start")
	return nil
}

func (v *testServer) wait(t *testing.T) error {
	select {
	case err := <-v.errC:
		v.errC <- err
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func newClient(t *testing.T, addr, network string, conns uint64) client.Client {
	cli, err := client.New(client.Config{
		Network:  network,
		Address:  addr,
		MaxConns: conns,
		Timeout:  2 * time.Second,
	})
	casecheck.NoError(t, err)
	return cli
}

func exchange(t *testing.T, w io.Writer, r io.Reader, req string) string {
	resp, err := client.Exchange(w, r, []byte(req))
	casecheck.NoError(t, err, req)
	return string(resp)
}

func stats(total, current int) string {
	return fmt.Sprintf("Total clients: %d\nCurrent clients: %d\n", total, current)
}

func TestUnit_Scenario(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ts := startServer(t, func(srv *epoll.Server) {
		srv.Metrics = m
	})

	tcp := newClient(t, ts.addr, "tcp", 2)

	err := tcp.Call(context.Background(), func(ctx context.Context, w1 io.Writer, r1 io.Reader) error {
		casecheck.Equal(t, "hello", exchange(t, w1, r1, "hello"))
		casecheck.True(t, timeRe.MatchString(exchange(t, w1, r1, "/time")))
		casecheck.Equal(t, stats(1, 1), exchange(t, w1, r1, "/stats"))

		e := tcp.Call(ctx, func(_ context.Context, w2 io.Writer, r2 io.Reader) error {
			casecheck.Equal(t, stats(2, 2), exchange(t, w2, r2, "/stats"))
			casecheck.Equal(t, stats(2, 2), exchange(t, w1, r1, "/stats"))
			return nil
		})
		casecheck.NoError(t, e)

		// the close of the second connection may be served after the next read
		got := ""
		for i := 0; i < 50; i++ {
			if got = exchange(t, w1, r1, "/stats"); got == stats(2, 1) {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		casecheck.Equal(t, stats(2, 1), got)

		casecheck.Equal(t, "Unknown command\n", exchange(t, w1, r1, "/bogus"))
		return nil
	})
	casecheck.NoError(t, err)

	resp, err := newClient(t, ts.addr, "udp", 1).Do(context.Background(), []byte("ping"))
	casecheck.NoError(t, err)
	casecheck.Equal(t, "ping", string(resp))

	casecheck.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsAccepted))
	casecheck.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("tcp", command.NameEcho)))
	casecheck.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("tcp", command.NameUnknown)))
	// the startup probe is an udp echo as well
	casecheck.True(t, testutil.ToFloat64(m.Requests.WithLabelValues("udp", command.NameEcho)) >= 2)
	casecheck.True(t, testutil.ToFloat64(m.DatagramsReceived) >= 2)
}

func TestUnit_StatsOverUDP(t *testing.T) {
	ts := startServer(t, nil)

	tcp := newClient(t, ts.addr, "tcp", 1)
	udp := newClient(t, ts.addr, "udp", 1)

	err := tcp.Call(context.Background(), func(_ context.Context, w io.Writer, r io.Reader) error {
		casecheck.Equal(t, "x", exchange(t, w, r, "x"))

		resp, e := udp.Do(context.Background(), []byte("/stats"))
		casecheck.NoError(t, e)
		casecheck.Equal(t, stats(1, 1), string(resp))
		return nil
	})
	casecheck.NoError(t, err)

	resp, err := udp.Do(context.Background(), []byte("/time"))
	casecheck.NoError(t, err)
	casecheck.True(t, timeRe.MatchString(string(resp)), string(resp))
}

func TestUnit_DatagramBounds(t *testing.T) {
	ts := startServer(t, nil)
	udp := newClient(t, ts.addr, "udp", 1)

	big := bytes.Repeat([]byte("a"), 2000)
	resp, err := udp.Do(context.Background(), big)
	casecheck.NoError(t, err)
	casecheck.Equal(t, internal.MessageSize-1, len(resp))
	casecheck.Equal(t, string(big[:internal.MessageSize-1]), string(resp))

	resp, err = udp.Do(context.Background(), []byte("\x00hidden"))
	casecheck.NoError(t, err)
	casecheck.Equal(t, 0, len(resp))

	quick, err := client.New(client.Config{Network: "udp", Address: ts.addr, Timeout: 300 * time.Millisecond})
	casecheck.NoError(t, err)
	_, err = quick.Do(context.Background(), []byte{})
	casecheck.Error(t, err)

	resp, err = udp.Do(context.Background(), []byte("still alive"))
	casecheck.NoError(t, err)
	casecheck.Equal(t, "still alive", string(resp))
}

func TestUnit_StreamSplitRead(t *testing.T) {
	ts := startServer(t, nil)
	tcp := newClient(t, ts.addr, "tcp", 1)
	limit := internal.MessageSize - 1

	err := tcp.Call(context.Background(), func(_ context.Context, w io.Writer, r io.Reader) error {
		big := bytes.Repeat([]byte("a"), 2000)
		_, e := w.Write(big)
		casecheck.NoError(t, e)

		got := make([]byte, len(big))
		_, e = io.ReadFull(r, got)
		casecheck.NoError(t, e)
		casecheck.Equal(t, string(big[:limit]), string(got[:limit]))
		casecheck.Equal(t, string(big), string(got))

		// a command in the bytes past the read limit is answered on its own
		req := append(bytes.Repeat([]byte("b"), limit), "/stats"...)
		_, e = w.Write(req)
		casecheck.NoError(t, e)

		want := string(req[:limit]) + stats(1, 1)
		got = make([]byte, len(want))
		_, e = io.ReadFull(r, got)
		casecheck.NoError(t, e)
		casecheck.Equal(t, want, string(got))

		casecheck.Equal(t, stats(1, 1), exchange(t, w, r, "/stats"))
		return nil
	})
	casecheck.NoError(t, err)
}

func TestUnit_ConcurrentConnections(t *testing.T) {
	const count = 32
	ts := startServer(t, nil)
	tcp := newClient(t, ts.addr, "tcp", count)

	results := make([]string, count)
	wg := syncing.NewGroup()
	for i := 0; i < count; i++ {
		wg.Background(func() {
			resp, err := tcp.Do(context.Background(), []byte(fmt.Sprintf("conn-%02d:%s", i, strings.Repeat("z", i))))
			if err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = string(resp)
		})
	}
	wg.Wait()

	for i := 0; i < count; i++ {
		casecheck.Equal(t, fmt.Sprintf("conn-%02d:%s", i, strings.Repeat("z", i)), results[i])
	}

	resp, err := newClient(t, ts.addr, "udp", 1).Do(context.Background(), []byte("/stats"))
	casecheck.NoError(t, err)
	casecheck.True(t, strings.HasPrefix(string(resp), fmt.Sprintf("Total clients: %d\n", count)), string(resp))
}

func TestUnit_ShutdownCommand(t *testing.T) {
	for _, network := range []string{"tcp", "udp"} {
		t.Run(network, func(t *testing.T) {
			ts := startServer(t, nil)

			resp, err := newClient(t, ts.addr, network, 1).Do(context.Background(), []byte("/shutdown"))
			casecheck.NoError(t, err)
			casecheck.Equal(t, "Shutting down...\n", string(resp))

			casecheck.NoError(t, ts.wait(t))

			_, err = net.DialTimeout("tcp", ts.addr, time.Second)
			casecheck.Error(t, err)
		})
	}
}

func TestUnit_ContextClose(t *testing.T) {
	ts := startServer(t, nil)

	conn, err := net.Dial("tcp", ts.addr)
	casecheck.NoError(t, err)
	defer conn.Close() //nolint: errcheck

	ts.ctx.Close()
	casecheck.NoError(t, ts.wait(t))

	casecheck.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 8))
	casecheck.Error(t, err)
}

func TestUnit_AlreadyRunning(t *testing.T) {
	ts := startServer(t, nil)

	err := ts.srv.ListenAndServe(xc.New())
	casecheck.True(t, errors.Is(err, internal.ErrServAlreadyRunning))
}

func TestUnit_SetupFailure(t *testing.T) {
	port, err := address.RandomPort("127.0.0.1")
	casecheck.NoError(t, err)
	addr := address.HostPort("127.0.0.1", port)

	busy, err := net.ListenPacket("udp", addr)
	casecheck.NoError(t, err)
	defer busy.Close() //nolint: errcheck

	srv := epoll.NewServer(epoll.Config{Host: "127.0.0.1", Port: port})
	casecheck.Error(t, srv.ListenAndServe(xc.New()))

	// the tcp socket opened before the udp bind failed has been released
	l, err := net.Listen("tcp", addr)
	casecheck.NoError(t, err)
	casecheck.NoError(t, l.Close())

	srv = epoll.NewServer(epoll.Config{Host: "localhost", Port: port})
	casecheck.Error(t, srv.ListenAndServe(xc.New()))

	srv = epoll.NewServer(epoll.Config{Port: port})
	srv.Handler = nil
	casecheck.Error(t, srv.ListenAndServe(xc.New()))
}

func TestUnit_CustomHandler(t *testing.T) {
	ts := startServer(t, func(srv *epoll.Server) {
		srv.Handler = func(env command.Env, dst, req []byte) int {
			if string(req) == "ready" {
				return copy(dst, req)
			}
			total, current := env.Counters()
			return copy(dst, fmt.Sprintf("%s %d/%d", bytes.ToUpper(req), total, current))
		}
	})

	resp, err := newClient(t, ts.addr, "tcp", 1).Do(context.Background(), []byte("abc"))
	casecheck.NoError(t, err)
	casecheck.Equal(t, "ABC 1/1", string(resp))
}
