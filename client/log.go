/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package client

import (
	"go.osspkg.com/logx"

	"go.osspkg.com/echod/errs"
)

// WriteLog logs a failed probe: peer-closed errors at debug level, timeouts at warn.
func WriteLog(err error, message, network, address string) {
	if err == nil {
		return
	}
	if errs.IsClosed(err) {
		logx.Debug(message, "err", err, "network", network, "address", address)
		return
	}
	if errs.IsTimeout(err) {
		logx.Warn(message, "err", err, "network", network, "address", address)
		return
	}
	logx.Error(message, "err", err, "network", network, "address", address)
}
