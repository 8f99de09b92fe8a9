// Copyright (c) 2024 The binlang Authors
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

//go:build tinygo.wasm

package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/maxleiko/binlang/internal/plugin/protocol"
)

// Buffers handed to the host stay reachable until deallocated.
var buffers = make(map[*uint8][]uint8)

func main() {}

//go:export binlang_codegen_allocate
func binlangCodegenAllocate(len uint32) *uint8 {
	if len > math.MaxInt32 {
		return nil
	}
	buf := make([]uint8, int(len))
	ptr := unsafe.SliceData(buf)
	buffers[ptr] = buf
	return ptr
}

//go:export binlang_codegen_deallocate
func binlangCodegenDeallocate(ptr *uint8) {
	delete(buffers, ptr)
}

//go:export binlang_codegen_generate
func binlangCodegenGenerate(requestPtr *uint8, responsePtrPtr **uint8) uint8 {
	requestLen := binary.LittleEndian.Uint32(unsafe.Slice(requestPtr, 4))
	requestBuf := unsafe.Slice(requestPtr, requestLen)

	response, rc := generate(requestBuf)
	responseBuf, err := protocol.Encode(response)
	if err != nil {
		responseBuf, _ = protocol.Encode(&protocol.Response{
			Error: fmt.Sprintf("Encode[Response]: %v", err),
		})
		rc = 1
	}
	responsePtr := unsafe.SliceData(responseBuf)
	buffers[responsePtr] = responseBuf
	*responsePtrPtr = responsePtr
	return rc
}
