/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.osspkg.com/algorithms/control"
	"go.osspkg.com/errors"

	"go.osspkg.com/echod/internal"
)

const defaultTimeout = 5 * time.Second

type (
	Client interface {
		Call(ctx context.Context, handler func(ctx context.Context, w io.Writer, r io.Reader) error) error
		Do(ctx context.Context, req []byte) ([]byte, error)
	}

	_client struct {
		conf Config
		sem  control.Semaphore
	}
)

func New(c Config) (Client, error) {
	addr, err := c.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}

	c.Address = addr.String()

	if c.MaxConns <= 0 {
		c.MaxConns = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	cli := &_client{
		conf: c,
		sem:  control.NewSemaphore(c.MaxConns),
	}

	return cli, nil
}

func (v *_client) conn(ctx context.Context) (net.Conn, error) {
	var dial net.Dialer
	conn, err := dial.DialContext(ctx, v.conf.Network, v.conf.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", v.conf.Network, err)
	}
	if err = internal.Deadline(conn, v.conf.Timeout); err != nil {
		return nil, errors.Wrap(err, conn.Close())
	}
	return conn, nil
}

// Call opens one connection for the lifetime of handler. For udp the
// connection is a connected socket: every Write is one datagram.
func (v *_client) Call(ctx context.Context, handler func(ctx context.Context, w io.Writer, r io.Reader) error) (e error) {
	v.sem.Acquire()
	defer func() { v.sem.Release() }()

	ctx, cancel := context.WithTimeout(ctx, v.conf.Timeout)
	defer cancel()

	conn, err := v.conn(ctx)
	if err != nil {
		return err
	}

	defer func() {
		e = errors.Wrap(e, internal.NormalCloseError(conn.Close()))
	}()

	e = handler(ctx, conn, conn)

	return
}

// Do sends req on a fresh connection and returns the first response read.
func (v *_client) Do(ctx context.Context, req []byte) (resp []byte, err error) {
	err = v.Call(ctx, func(_ context.Context, w io.Writer, r io.Reader) error {
		var e error
		resp, e = Exchange(w, r, req)
		return e
	})
	return
}

// Exchange writes req and returns the bytes of one read, which is one datagram
// for udp and whatever the server sent in one go for tcp.
func Exchange(w io.Writer, r io.Reader, req []byte) ([]byte, error) {
	if _, err := w.Write(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	buff := internal.BytesPool.Get()
	defer internal.BytesPool.Put(buff)

	n, err := r.Read(buff.Slice)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := make([]byte, n)
	copy(out, buff.Slice[:n])
	return out, nil
}
