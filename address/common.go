/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package address

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.osspkg.com/errors"
	"golang.org/x/sys/unix"
)

var (
	ErrResolveAddress = errors.New("resolve address")
	ErrInvalidPort    = errors.New("invalid port")
)

const (
	MinPort = 1
	MaxPort = 65535
)

// RandomPort returns a port on host that is currently free for both tcp and udp.
func RandomPort(host string) (int, error) {
	network := "4"
	if strings.Contains(host, ":") {
		network = "6"
	}

	for i := 0; i < 10; i++ {
		l, err := net.Listen("tcp"+network, net.JoinHostPort(host, "0"))
		if err != nil {
			return 0, errors.Wrap(err, ErrResolveAddress)
		}
		port := l.Addr().(*net.TCPAddr).Port

		pc, err := net.ListenPacket("udp"+network, net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			if err = l.Close(); err != nil {
				return 0, errors.Wrap(err, ErrResolveAddress)
			}
			continue
		}

		if err = errors.Wrap(pc.Close(), l.Close()); err != nil {
			return 0, errors.Wrap(err, ErrResolveAddress)
		}
		return port, nil
	}

	return 0, errors.Wrapf(ErrResolveAddress, "no free tcp+udp port on %s", host)
}

func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return errors.Wrapf(ErrInvalidPort, "%d not in [%d,%d]", port, MinPort, MaxPort)
	}
	return nil
}

func HostPort(host string, port int) string {
	if len(host) == 0 {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Sockaddr converts a literal ip:port into a socket address for raw syscalls.
// Host names are not resolved.
func Sockaddr(address string) (unix.Sockaddr, error) {
	host, sport, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.Wrap(err, ErrResolveAddress)
	}
	port, err := strconv.Atoi(sport)
	if err != nil || port < 0 || port > MaxPort {
		return nil, errors.Wrapf(ErrInvalidPort, "%q", sport)
	}
	if len(host) == 0 {
		host = "0.0.0.0"
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, errors.Wrapf(ErrResolveAddress, "%q is not an ip address", host)
	}

	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}

	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, nil
}

func Family(sa unix.Sockaddr) int {
	if _, ok := sa.(*unix.SockaddrInet6); ok {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func String(sa unix.Sockaddr) string {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", sa)
	}
}

func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
