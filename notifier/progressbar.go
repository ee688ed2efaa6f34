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
	"io"

	"github.com/schollz/progressbar/v3"
)

// TerminalProgress renders Records carrying a non-negative Percent as a
// live terminal progress bar, for interactive invocations of the
// command-line entry point. Records without a meaningful percentage
// (phase-transition markers, error records) are logged by the caller's
// own subscriber instead; this one simply ignores them.
type TerminalProgress struct {
	bar *progressbar.ProgressBar
}

// NewTerminalProgress creates a 0-100 progress bar writing to out.
func NewTerminalProgress(out io.Writer) *TerminalProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("installing update"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &TerminalProgress{bar: bar}
}

// Subscriber returns a Subscriber suitable for Bus.Subscribe.
func (t *TerminalProgress) Subscriber() Subscriber {
	return func(r Record) {
		if r.Percent < 0 {
			return
		}
		t.bar.Set(r.Percent) //nolint:errcheck
		if r.Percent >= 100 {
			t.bar.Finish() //nolint:errcheck
		}
	}
}
