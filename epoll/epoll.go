/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package epoll

import (
	"fmt"

	"go.osspkg.com/errors"
	"golang.org/x/sys/unix"
)

type (
	_epoll struct {
		fd     int
		events []unix.EpollEvent
		cfg    Option
	}
	TEpoll interface {
		Add(fd int, events uint32) error
		Del(fd int) error
		Wait() ([]unix.EpollEvent, error)
		Close() error
	}
)

func New(c Option) (TEpoll, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	v, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrapf(err, "epoll create")
	}
	return &_epoll{
		fd:     v,
		cfg:    c,
		events: make([]unix.EpollEvent, c.CountEvents),
	}, nil
}

func (v *_epoll) Add(fd int, events uint32) error {
	return unix.EpollCtl(v.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (v *_epoll) Del(fd int) error {
	return unix.EpollCtl(v.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks for at most WaitIntervalMS. A timeout or an interrupted wait
// returns an empty batch; the batch is reused by the next call.
func (v *_epoll) Wait() ([]unix.EpollEvent, error) {
	n, err := unix.EpollWait(v.fd, v.events, int(v.cfg.WaitIntervalMS))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	return v.events[:n], nil
}

func (v *_epoll) Close() error {
	return unix.Close(v.fd)
}
