/*******************************************************************************
*
* Copyright 2026 The swupdate-core Authors
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

// Package transform streams one artifact's payload through an ordered
// chain of stages (decrypt, decompress, hash-tee) into a typed Sink.
// The decompress and hash-tee stages and Chain's own copy work in
// bounded chunks; DecryptAESCBC does not stream and reads the whole
// ciphertext into memory before emitting any plaintext.
package transform

import (
	"context"
	"io"
)

// chunkSize bounds how much of the final stage's output Chain copies
// into the sink before checking ctx again, so a cancel is observed
// within one chunk's worth of work rather than only at EOF.
const chunkSize = 32 * 1024

// Stage wraps a source reader with one processing step. It returns the
// wrapped reader plus an optional cleanup func, called after the whole
// chain has been drained, to release stage-owned resources (a zstd
// decoder's window buffer, for instance). cleanup may be nil. Stages
// must not read ahead further than necessary, since the underlying
// source is a bounded, forward-only archive entry.
type Stage func(src io.Reader) (r io.Reader, cleanup func() error, err error)

// Chain runs src through every stage in order, then copies the final
// result into sink in fixed-size chunks, then runs every stage's
// cleanup in reverse order. It returns the number of bytes written to
// sink and the first error encountered from any stage, the copy, or a
// cleanup call.
//
// ctx is checked between chunks of the final copy; once it is done,
// Chain stops copying and returns a *CancelledError without draining
// the rest of src. A nil ctx disables this check. Cleanup still runs
// on a cancelled chain, since stage-owned resources must be released
// either way.
func Chain(ctx context.Context, src io.Reader, sink io.Writer, stages ...Stage) (n int64, err error) {
	cur := src
	var cleanups []func() error
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			if cerr := cleanups[i](); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	for _, stage := range stages {
		next, cleanup, serr := stage(cur)
		if serr != nil {
			return 0, serr
		}
		if cleanup != nil {
			cleanups = append(cleanups, cleanup)
		}
		cur = next
	}

	buf := make([]byte, chunkSize)
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return n, &CancelledError{}
			default:
			}
		}
		nr, rerr := cur.Read(buf)
		if nr > 0 {
			nw, werr := sink.Write(buf[:nr])
			n += int64(nw)
			if werr != nil {
				return n, werr
			}
			if nw != nr {
				return n, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return n, nil
			}
			return n, rerr
		}
	}
}
