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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBootloaderSetEnvAndGetEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootenv")
	b := NewFileBootloader(path)

	require.NoError(t, b.SetEnv(map[string]string{"active_slot": "b", "boot_count": "0"}))

	v, err := b.GetEnv("active_slot")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	v, err = b.GetEnv("missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestFileBootloaderSetEnvMergesWithExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootenv")
	b := NewFileBootloader(path)

	require.NoError(t, b.SetEnv(map[string]string{"a": "1"}))
	require.NoError(t, b.SetEnv(map[string]string{"b": "2"}))

	va, _ := b.GetEnv("a")
	vb, _ := b.GetEnv("b")
	assert.Equal(t, "1", va)
	assert.Equal(t, "2", vb)
}

type unavailableBackend struct{}

func (unavailableBackend) Name() string                         { return "unavailable" }
func (unavailableBackend) Probe() bool                          { return false }
func (unavailableBackend) GetEnv(string) (string, error)        { return "", nil }
func (unavailableBackend) SetEnv(map[string]string) error       { return nil }

func TestSelectSkipsUnavailableBackends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootenv")
	fb := NewFileBootloader(path)

	chosen, err := Select([]Bootloader{unavailableBackend{}, fb})
	require.NoError(t, err)
	assert.Equal(t, "file", chosen.Name())
}

func TestSelectErrorsWhenNothingAvailable(t *testing.T) {
	_, err := Select([]Bootloader{unavailableBackend{}})
	assert.Error(t, err)
}
