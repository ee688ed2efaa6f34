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

package transform

import (
	"io"
	"os"
)

// Sink is the typed destination a handler hands Chain: a plain
// io.Writer plus an explicit Commit/Abort step so a handler can
// distinguish a fully-written artifact from a partial one.
type Sink interface {
	io.Writer
	// Commit finalizes the sink (e.g. fsync + rename into place). It is
	// only called after Chain has copied every byte successfully.
	Commit() error
	// Abort discards any partial state. Called instead of Commit when
	// the chain failed partway through.
	Abort() error
}

// FileSink writes to a temporary file beside the final destination path
// and renames it into place on Commit, so a crash mid-write never leaves
// a half-written artifact at its final name.
type FileSink struct {
	finalPath string
	tmp       *os.File
	mode      os.FileMode
}

// NewFileSink creates the temporary file now; Commit renames it to path.
func NewFileSink(path string, mode os.FileMode) (*FileSink, error) {
	tmp, err := os.CreateTemp(dirOf(path), ".update-*")
	if err != nil {
		return nil, &IOError{Op: "create", Err: err}
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, &IOError{Op: "chmod", Err: err}
	}
	return &FileSink{finalPath: path, tmp: tmp, mode: mode}, nil
}

func (s *FileSink) Write(p []byte) (int, error) { return s.tmp.Write(p) }

func (s *FileSink) Commit() error {
	if err := s.tmp.Sync(); err != nil {
		s.tmp.Close()
		return &IOError{Op: "fsync", Err: err}
	}
	if err := s.tmp.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	if err := os.Rename(s.tmp.Name(), s.finalPath); err != nil {
		return &IOError{Op: "rename", Err: err}
	}
	return nil
}

func (s *FileSink) Abort() error {
	s.tmp.Close()
	return os.Remove(s.tmp.Name())
}

func dirOf(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	if i == 0 {
		return "/"
	}
	return path[:i]
}
