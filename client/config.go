/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package client

import (
	"fmt"
	"net"
	"time"

	"go.osspkg.com/echod/internal"
)

type Config struct {
	Network  string
	Address  string
	MaxConns uint64
	// Timeout bounds every call, dial included. Defaults to 5s.
	Timeout time.Duration
}

func (c Config) Resolve() (addr fmt.Stringer, err error) {
	if err := internal.IsPassableNetwork(c.Network); err != nil {
		return nil, err
	}

	switch c.Network {
	case internal.NetTCP:
		return net.ResolveTCPAddr(internal.NetTCP, c.Address)
	default:
		return net.ResolveUDPAddr(internal.NetUDP, c.Address)
	}
}
