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

package bootloader

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// FileBootloader stores bootenv variables as "key=value" lines in a
// plain file, committed via a temp-file-plus-rename, matching the same
// crash-safe write pattern transform.FileSink uses for artifacts. It is
// fully functional (not a stub), used in tests and on hosts with no
// real bootloader.
type FileBootloader struct {
	path string
	mu   sync.Mutex
}

// NewFileBootloader returns a backend backed by the file at path, which
// need not exist yet.
func NewFileBootloader(path string) *FileBootloader {
	return &FileBootloader{path: path}
}

func (f *FileBootloader) Name() string { return "file" }

// Probe always succeeds: a file-backed environment has no hardware
// precondition. Callers should list it last among candidates so real
// backends are preferred when present.
func (f *FileBootloader) Probe() bool { return true }

func (f *FileBootloader) GetEnv(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars, err := f.readAll()
	if err != nil {
		return "", err
	}
	return vars[key], nil
}

func (f *FileBootloader) SetEnv(updates map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars, err := f.readAll()
	if err != nil {
		return err
	}
	for k, v := range updates {
		vars[k] = v
	}

	tmp, err := os.CreateTemp(dirOf(f.path), ".bootenv-*")
	if err != nil {
		return fmt.Errorf("bootloader: file: %w", err)
	}
	defer os.Remove(tmp.Name())

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(tmp, "%s=%s\n", k, vars[k]); err != nil {
			tmp.Close()
			return fmt.Errorf("bootloader: file: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("bootloader: file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("bootloader: file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("bootloader: file: %w", err)
	}
	return nil
}

func (f *FileBootloader) readAll() (map[string]string, error) {
	vars := make(map[string]string)
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return vars, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bootloader: file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}
	return vars, scanner.Err()
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
