/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"go.osspkg.com/errors"
	"go.osspkg.com/logx"
	"golang.org/x/sys/unix"

	"go.osspkg.com/echod/address"
	netfd "go.osspkg.com/echod/fd"
	"go.osspkg.com/echod/internal"
)

// accept drains the listen backlog until the kernel reports would-block.
func (v *Server) accept() {
	for {
		fd, sa, err := netfd.Accept(v.streamFD)
		if err != nil {
			switch {
			case netfd.IsWouldBlock(err):
			case netfd.IsInterrupted(err), errors.Is(err, unix.ECONNABORTED):
				continue
			default:
				logx.Error("Epoll conn accept", "err", err)
			}
			return
		}

		addr := address.String(sa)

		if err = v.epoll.Add(fd, connectEvents); err != nil {
			v.Metrics.Rejected()
			logx.Error("Epoll append connect", "err", errors.Wrap(err, netfd.Close(fd)), "addr", addr)
			continue
		}

		v.conns[int32(fd)] = newConnect(fd, addr)
		v.counters.Accepted()
		v.Metrics.Accepted()
		logx.Debug("Epoll connect opened", "addr", addr, "fd", fd)
	}
}

// handleStream serves one read. Bytes of a command split over two reads are
// answered as two separate requests.
func (v *Server) handleStream(c *connect) {
	req := internal.BytesPool.Get()
	defer internal.BytesPool.Put(req)

	buf := req.Limit(v.limit())
	n, err := netfd.Read(c.FD(), buf)
	switch {
	case err != nil && netfd.IsWouldBlock(err):
		return
	case err != nil || n == 0:
		internal.WriteErrLog("Epoll read connect", err, c.addr)
		internal.WriteErrLog("Epoll close connect", v.closeConn(c), c.addr)
		return
	}

	resp := internal.BytesPool.Get()
	defer internal.BytesPool.Put(resp)

	out := resp.Limit(v.limit())
	m := v.dispatch(internal.NetTCP, out, buf[:n])

	if _, err = netfd.WriteAll(c.FD(), out[:m]); err != nil {
		v.Metrics.WriteError(internal.NetTCP)
		internal.WriteErrLog("Epoll write connect", err, c.addr)
	}
}

func (v *Server) closeConn(c *connect) error {
	if _, ok := v.conns[c.fd]; !ok {
		return nil
	}
	delete(v.conns, c.fd)
	v.counters.Closed()
	v.Metrics.Closed()
	logx.Debug("Epoll connect closed", "addr", c.addr, "fd", c.fd)

	return errors.Wrap(
		v.epoll.Del(c.FD()),
		netfd.Close(c.FD()),
	)
}
