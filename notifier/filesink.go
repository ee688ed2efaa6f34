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

package notifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"
)

// FileSink appends every Record it receives to an underlying writer as a
// single CSV line (level, phase, error code, percent, message), one
// record per Publish call. It never returns an error to its caller: a
// subscriber that can fail would need Bus.Publish itself to propagate
// errors, which spec.md gives no mechanism for, so write failures are
// recorded on the FileSink for the owner to inspect between updates
// instead of surfacing mid-session.
type FileSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	err    error
}

// NewFileSink wraps w (and, if non-nil, closer) as a FileSink. Passing
// the *os.File returned by os.Create for both w and closer is typical.
func NewFileSink(w io.Writer, closer io.Closer) *FileSink {
	return &FileSink{w: csv.NewWriter(w), closer: closer}
}

// Subscriber returns a Subscriber suitable for Bus.Subscribe.
func (f *FileSink) Subscriber() Subscriber {
	return func(r Record) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.err != nil {
			return
		}
		row := []string{
			r.Level.String(),
			r.Phase,
			r.ErrorCode,
			fmt.Sprintf("%d", r.Percent),
			r.Message,
		}
		if err := f.w.Write(row); err != nil {
			f.err = err
			return
		}
		f.w.Flush()
		f.err = f.w.Error()
	}
}

// Err reports the first write error encountered, if any.
func (f *FileSink) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close flushes any buffered output and closes the underlying writer,
// if one was supplied to NewFileSink.
func (f *FileSink) Close() error {
	f.mu.Lock()
	f.w.Flush()
	err := f.w.Error()
	f.mu.Unlock()
	if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
