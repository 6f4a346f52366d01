/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.osspkg.com/errors"
	"go.osspkg.com/logx"
	"go.osspkg.com/syncing"
)

type (
	Config struct {
		// Address of the /metrics endpoint, disabled when empty.
		Address string `yaml:"address,omitempty"`
	}

	Server struct {
		conf Config
		srv  *http.Server
	}
)

func NewServer(conf Config, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		conf: conf,
		srv: &http.Server{
			Addr:              conf.Address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (c Config) Enabled() bool {
	return len(c.Address) > 0
}

// ListenAndServe serves until ctx is done.
func (v *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", v.conf.Address)
	if err != nil {
		return errors.Wrapf(err, "metrics listen")
	}
	return v.Serve(ctx, l)
}

func (v *Server) Serve(ctx context.Context, l net.Listener) error {
	wg := syncing.NewGroup()
	errC := make(chan error, 1)

	wg.Background(func() {
		errC <- v.srv.Serve(l)
	})

	logx.Info("Metrics server started", "addr", l.Addr().String())

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := v.srv.Shutdown(sctx)
	wg.Wait()
	logx.Info("Metrics server stopped", "addr", l.Addr().String())
	return err
}
