/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.osspkg.com/logx"
	"go.osspkg.com/syncing"
	"go.osspkg.com/xc"

	"go.osspkg.com/echod/address"
	"go.osspkg.com/echod/config"
	"go.osspkg.com/echod/epoll"
	"go.osspkg.com/echod/metrics"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	port, err := parsePort(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s\nusage: echod [port]  (port in %d..%d, default %d)\n",
			err, address.MinPort, address.MaxPort, epoll.DefaultPort)
		return exitUsage
	}

	conf, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	if port > 0 {
		conf.Server.Port = port
	}
	if err = conf.Log.Apply(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	ctx := xc.New()
	wg := syncing.NewGroup()
	srv := epoll.NewServer(conf.Server)

	if conf.Metrics.Enabled() {
		reg := prometheus.NewRegistry()
		srv.Metrics = metrics.New(reg)
		ms := metrics.NewServer(conf.Metrics, reg)
		wg.Background(func() {
			if e := ms.ListenAndServe(ctx.Context()); e != nil {
				logx.Error("Metrics server", "err", e)
			}
		})
	}

	err = srv.ListenAndServe(ctx)
	ctx.Close()
	wg.Wait()

	if err != nil {
		logx.Error("Echo server stopped", "err", err)
		return exitFail
	}
	logx.Info("Echo server stopped")
	return exitOK
}

// parsePort returns 0 when no port was given.
func parsePort(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
	default:
		return 0, fmt.Errorf("too many arguments: %d", len(args))
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", args[0])
	}
	if err = address.ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}
