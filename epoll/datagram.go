/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"go.osspkg.com/logx"

	"go.osspkg.com/echod/address"
	netfd "go.osspkg.com/echod/fd"
	"go.osspkg.com/echod/internal"
)

// handlePacket answers one datagram. The tail of a datagram longer than the
// buffer is discarded by the kernel.
func (v *Server) handlePacket() {
	req := internal.BytesPool.Get()
	defer internal.BytesPool.Put(req)

	buf := req.Limit(v.limit())
	n, from, err := netfd.RecvFrom(v.packetFD, buf)
	if err != nil {
		if !netfd.IsWouldBlock(err) {
			logx.Debug("Epoll read packet", "err", err)
		}
		return
	}
	if n <= 0 || from == nil {
		return
	}
	v.Metrics.Datagram()

	resp := internal.BytesPool.Get()
	defer internal.BytesPool.Put(resp)

	out := resp.Limit(v.limit())
	m := v.dispatch(internal.NetUDP, out, buf[:n])

	if err = netfd.SendTo(v.packetFD, out[:m], from); err != nil {
		v.Metrics.WriteError(internal.NetUDP)
		logx.Debug("Epoll write packet", "err", err, "addr", address.String(from))
	}
}
