/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

// Package command answers one request buffer with one response buffer.
//
// A request starting with '/' is a command matched by exact, case-sensitive prefix
// in the order /time, /stats, /shutdown, so "/timestamp" is answered as "/time".
// Anything else is echoed back. The request ends at the first NUL byte.
package command

import (
	"bytes"
	"strconv"
	"time"
)

const (
	NameTime     = "time"
	NameStats    = "stats"
	NameShutdown = "shutdown"
	NameUnknown  = "unknown"
	NameEcho     = "echo"

	TimeLayout = "2006-01-02 15:04:05"
)

var (
	prefixTime     = []byte("/time")
	prefixStats    = []byte("/stats")
	prefixShutdown = []byte("/shutdown")

	respShutdown = []byte("Shutting down...\n")
	respUnknown  = []byte("Unknown command\n")
)

type (
	// Env is the loop state a command may observe or act on.
	Env interface {
		Counters() (total, current int)
		Shutdown()
	}

	Dispatcher struct {
		now func() time.Time
	}
)

func New() *Dispatcher {
	return &Dispatcher{now: time.Now}
}

// WithClock replaces the time source used by /time.
func (v *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	v.now = now
	return v
}

// Dispatch writes the response for req into dst and returns its length.
// Responses longer than dst are cut at len(dst).
func (v *Dispatcher) Dispatch(env Env, dst, req []byte) int {
	req = terminate(req)

	switch Name(req) {
	case NameTime:
		b := v.now().Local().AppendFormat(dst[:0:len(dst)], TimeLayout)
		b = append(b, '\n')
		return copy(dst, b)

	case NameStats:
		total, current := env.Counters()
		b := append(dst[:0:len(dst)], "Total clients: "...)
		b = strconv.AppendInt(b, int64(total), 10)
		b = append(b, "\nCurrent clients: "...)
		b = strconv.AppendInt(b, int64(current), 10)
		b = append(b, '\n')
		return copy(dst, b)

	case NameShutdown:
		env.Shutdown()
		return copy(dst, respShutdown)

	case NameUnknown:
		return copy(dst, respUnknown)

	default:
		return copy(dst, req)
	}
}

// Name classifies req with the same grammar Dispatch uses.
func Name(req []byte) string {
	req = terminate(req)

	if len(req) == 0 || req[0] != '/' {
		return NameEcho
	}

	switch {
	case bytes.HasPrefix(req, prefixTime):
		return NameTime
	case bytes.HasPrefix(req, prefixStats):
		return NameStats
	case bytes.HasPrefix(req, prefixShutdown):
		return NameShutdown
	default:
		return NameUnknown
	}
}

func terminate(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
