/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package listen

import (
	"fmt"

	"go.osspkg.com/errors"
	"golang.org/x/sys/unix"

	"go.osspkg.com/echod/address"
	"go.osspkg.com/echod/internal"
)

// New opens a non-blocking socket bound to addr and returns its descriptor.
// tcp sockets are also put into listening state with the given backlog.
func New(network, addr string, backlog int) (int, error) {
	if err := internal.IsPassableNetwork(network); err != nil {
		return -1, err
	}

	sa, err := address.Sockaddr(addr)
	if err != nil {
		return -1, err
	}

	switch network {
	case internal.NetTCP:
		return newStream(sa, backlog)
	default:
		return newPacket(sa)
	}
}

func Stream(addr string, backlog int) (int, error) {
	return New(internal.NetTCP, addr, backlog)
}

func Packet(addr string) (int, error) {
	return New(internal.NetUDP, addr, 0)
}

func newStream(sa unix.Sockaddr, backlog int) (int, error) {
	fd, err := socket(sa, unix.SOCK_STREAM)
	if err != nil {
		return -1, err
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return -1, closeOnErr(fd, err, "set reuse addr")
	}
	if err = unix.Bind(fd, sa); err != nil {
		return -1, closeOnErr(fd, err, "bind tcp %s", address.String(sa))
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return -1, closeOnErr(fd, err, "listen tcp %s", address.String(sa))
	}
	return fd, nil
}

func newPacket(sa unix.Sockaddr) (int, error) {
	fd, err := socket(sa, unix.SOCK_DGRAM)
	if err != nil {
		return -1, err
	}
	if err = unix.Bind(fd, sa); err != nil {
		return -1, closeOnErr(fd, err, "bind udp %s", address.String(sa))
	}
	return fd, nil
}

func socket(sa unix.Sockaddr, typ int) (int, error) {
	fd, err := unix.Socket(address.Family(sa), typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrapf(err, "create socket")
	}
	return fd, nil
}

func closeOnErr(fd int, err error, format string, args ...any) error {
	return errors.Wrap(
		fmt.Errorf(format+": %w", append(args, err)...),
		unix.Close(fd),
	)
}

// Addr returns the local address a socket is bound to.
func Addr(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", err
	}
	return address.String(sa), nil
}
