/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"go.osspkg.com/xc"
	"golang.org/x/sys/unix"
)

const (
	listenEvents  = unix.EPOLLIN
	connectEvents = unix.EPOLLIN | unix.EPOLLRDHUP
)

func isDone(ctx xc.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
