/*
 *  Copyright (c) 2024 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package internal

import (
	"go.osspkg.com/errors"
	"go.osspkg.com/logx"

	"go.osspkg.com/echod/errs"
)

var (
	ErrServAlreadyRunning = errors.New("server already running")
)

func NormalCloseError(err error) error {
	if errs.IsClosed(err) {
		return nil
	}
	return err
}

// WriteErrLog logs err at warn level, or at debug level when the peer simply went away.
func WriteErrLog(message string, err error, addr string) {
	if err == nil {
		return
	}
	if errs.IsClosed(err) {
		logx.Debug(message, "err", err, "addr", addr)
		return
	}
	logx.Warn(message, "err", err, "addr", addr)
}
