/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"go.osspkg.com/xc"
)

type (
	connect struct {
		fd   int32
		addr string
	}

	Counters struct {
		total   int
		current int
	}

	env struct {
		counters *Counters
		ctx      xc.Context
	}
)

func newConnect(fd int, addr string) *connect {
	return &connect{
		fd:   int32(fd),
		addr: addr,
	}
}

func (v *connect) FD() int {
	return int(v.fd)
}

func (v *Counters) Accepted() {
	v.total++
	v.current++
}

func (v *Counters) Closed() {
	v.current--
}

func (v *Counters) Total() int {
	return v.total
}

func (v *Counters) Current() int {
	return v.current
}

func (v *env) Counters() (int, int) {
	return v.counters.Total(), v.counters.Current()
}

func (v *env) Shutdown() {
	v.ctx.Close()
}
