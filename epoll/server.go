/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"fmt"

	"go.osspkg.com/errors"
	"go.osspkg.com/logx"
	"go.osspkg.com/syncing"
	"go.osspkg.com/xc"

	"go.osspkg.com/echod/address"
	"go.osspkg.com/echod/command"
	netfd "go.osspkg.com/echod/fd"
	"go.osspkg.com/echod/internal"
	"go.osspkg.com/echod/listen"
	"go.osspkg.com/echod/metrics"
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultCountEvents    = 64
	DefaultWaitIntervalMS = 1000
)

type (
	Config struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		Backlog        int    `yaml:"backlog,omitempty"`
		BufferSize     int    `yaml:"buffer_size,omitempty"`
		CountEvents    uint   `yaml:"count_events,omitempty"`
		WaitIntervalMS uint   `yaml:"wait_interval_ms,omitempty"`
	}

	// Handler writes the response for req into dst and returns its length.
	Handler func(env command.Env, dst, req []byte) int

	// Server serves tcp and udp on one port from a single goroutine.
	// Connections, counters and the epoll set are touched only by that goroutine.
	Server struct {
		Config  Config
		Handler Handler
		Metrics *metrics.Metrics

		sync     syncing.Switch
		epoll    TEpoll
		env      *env
		streamFD int
		packetFD int
		conns    map[int32]*connect
		counters Counters
	}
)

func (c Config) WithDefaults() Config {
	c.Host = internal.NotEmpty(c.Host, DefaultHost)
	c.Port = internal.NotZero(c.Port, DefaultPort)
	c.BufferSize = internal.NotZero(c.BufferSize, internal.MessageSize)
	c.CountEvents = internal.NotZero(c.CountEvents, DefaultCountEvents)
	c.WaitIntervalMS = internal.NotZero(c.WaitIntervalMS, DefaultWaitIntervalMS)
	return c
}

func (c Config) Validate() error {
	if err := address.ValidatePort(c.Port); err != nil {
		return err
	}
	if !address.IsValidIP(c.Host) {
		return fmt.Errorf("host must be an ip address, got %q", c.Host)
	}
	if c.BufferSize < 2 {
		return fmt.Errorf("buffer size must be at least 2, got %d", c.BufferSize)
	}
	return Option{CountEvents: c.CountEvents, WaitIntervalMS: c.WaitIntervalMS}.Validate()
}

func (c Config) Address() string {
	return address.HostPort(c.Host, c.Port)
}

func NewServer(c Config) *Server {
	return &Server{
		Config:   c,
		Handler:  command.New().Dispatch,
		sync:     syncing.NewSwitch(),
		streamFD: -1,
		packetFD: -1,
	}
}

// ListenAndServe runs the loop until ctx is closed, by a signal or by /shutdown.
// It returns nil on a graceful stop and an error when setup or epoll_wait fails.
// Client connections still open at that point are closed.
func (v *Server) ListenAndServe(ctx xc.Context) (err error) {
	if !v.sync.On() {
		return internal.ErrServAlreadyRunning
	}
	if v.Handler == nil {
		return fmt.Errorf("epoll server: handler is empty")
	}

	v.Config = v.Config.WithDefaults()
	if err = v.Config.Validate(); err != nil {
		return errors.Wrapf(err, "validate config")
	}

	defer func() {
		err = errors.Wrap(err, v.teardown())
	}()

	if err = v.setup(ctx); err != nil {
		return
	}

	logx.Info("Echo server started", "port", v.Config.Port, "addr", v.Config.Address())

	err = v.serve(ctx)

	logx.Info("Echo server shutting down", "port", v.Config.Port)
	return
}

func (v *Server) setup(ctx xc.Context) (err error) {
	addr := v.Config.Address()

	v.conns = make(map[int32]*connect, v.Config.CountEvents)
	v.env = &env{counters: &v.counters, ctx: ctx}

	if v.streamFD, err = listen.Stream(addr, v.Config.Backlog); err != nil {
		return
	}
	if v.packetFD, err = listen.Packet(addr); err != nil {
		return
	}
	if v.epoll, err = New(Option{
		CountEvents:    v.Config.CountEvents,
		WaitIntervalMS: v.Config.WaitIntervalMS,
	}); err != nil {
		return
	}
	if err = v.epoll.Add(v.streamFD, listenEvents); err != nil {
		return errors.Wrapf(err, "epoll add tcp listener")
	}
	if err = v.epoll.Add(v.packetFD, listenEvents); err != nil {
		return errors.Wrapf(err, "epoll add udp socket")
	}
	return nil
}

func (v *Server) serve(ctx xc.Context) error {
	for {
		if isDone(ctx) {
			return nil
		}

		events, err := v.epoll.Wait()
		if err != nil {
			return errors.Wrapf(err, "epoll wait")
		}

		for _, ev := range events {
			v.route(int(ev.Fd))
			// The rest of the batch is dropped once shutdown is requested.
			if isDone(ctx) {
				break
			}
		}
	}
}

func (v *Server) route(fd int) {
	switch fd {
	case v.streamFD:
		v.accept()
	case v.packetFD:
		v.handlePacket()
	default:
		if c, ok := v.conns[int32(fd)]; ok {
			v.handleStream(c)
		}
	}
}

func (v *Server) dispatch(transport string, dst, req []byte) int {
	v.Metrics.Request(transport, command.Name(req))
	return v.Handler(v.env, dst, req)
}

func (v *Server) limit() int {
	return v.Config.BufferSize - 1
}

func (v *Server) teardown() (err error) {
	for _, c := range v.conns {
		err = errors.Wrap(err, v.closeConn(c))
	}
	for _, fd := range []int{v.streamFD, v.packetFD} {
		if fd < 0 {
			continue
		}
		if v.epoll != nil {
			v.epoll.Del(fd) //nolint: errcheck
		}
		err = errors.Wrap(err, netfd.Close(fd))
	}
	if v.epoll != nil {
		err = errors.Wrap(err, v.epoll.Close())
	}
	v.streamFD, v.packetFD, v.epoll = -1, -1, nil
	return
}
