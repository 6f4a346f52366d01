/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

// Package fd wraps the raw non-blocking descriptor calls used by the event loop.
// Would-block is returned as unix.EAGAIN and is never retried here.
package fd

import (
	"go.osspkg.com/errors"
	"golang.org/x/sys/unix"
)

func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// Accept takes one pending connection, already non-blocking and close-on-exec.
func Accept(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}

func Read(fd int, b []byte) (int, error) {
	n, err := unix.Read(fd, b)
	if n < 0 {
		n = 0
	}
	return n, err
}

// WriteAll sends b until done, retrying partial writes and EINTR.
// Any other error stops the loop; the unsent tail is dropped by the caller.
func WriteAll(fd int, b []byte) (int, error) {
	sent := 0
	for sent < len(b) {
		n, err := unix.SendmsgN(fd, b[sent:], nil, nil, unix.MSG_NOSIGNAL)
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			return sent, err
		}
		if n <= 0 {
			return sent, unix.EPIPE
		}
		sent += n
	}
	return sent, nil
}

func RecvFrom(fd int, b []byte) (int, unix.Sockaddr, error) {
	n, from, err := unix.Recvfrom(fd, b, 0)
	if n < 0 {
		n = 0
	}
	return n, from, err
}

func SendTo(fd int, b []byte, to unix.Sockaddr) error {
	return unix.Sendto(fd, b, 0, to)
}

func Close(fd int) error {
	return unix.Close(fd)
}
