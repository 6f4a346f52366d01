/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package internal

import (
	"go.osspkg.com/ioutils/pool"
)

// MessageSize is the reference receive buffer; one byte is reserved for the terminator,
// so at most MessageSize-1 bytes of a request are ever read.
const MessageSize = 1024

var BytesPool = pool.New[*Bytes](func() *Bytes {
	return &Bytes{Slice: make([]byte, MessageSize)}
})

type Bytes struct {
	Slice []byte
}

func (*Bytes) Reset() {}

// Limit returns a view of at most size bytes, growing the backing array when needed.
func (b *Bytes) Limit(size int) []byte {
	if cap(b.Slice) < size {
		b.Slice = make([]byte, size)
	}
	return b.Slice[:size]
}
