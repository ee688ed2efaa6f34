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
	"fmt"
	"os"
	"os/exec"
)

// CBootBootloader drives NVIDIA's nvbootctrl to flip the active boot
// slot on Tegra devices. Its environment model is a single active-slot
// index rather than free-form key/value pairs, so GetEnv/SetEnv only
// recognize the "slot" key; any other key is an error rather than a
// silent no-op.
type CBootBootloader struct{}

func NewCBootBootloader() *CBootBootloader { return &CBootBootloader{} }

func (c *CBootBootloader) Name() string { return "cboot" }

func (c *CBootBootloader) Probe() bool {
	_, err := exec.LookPath("nvbootctrl")
	if err != nil {
		return false
	}
	_, err = os.Stat("/dev/block/by-name/BCT")
	return err == nil
}

func (c *CBootBootloader) GetEnv(key string) (string, error) {
	if key != "slot" {
		return "", fmt.Errorf("bootloader: cboot: unsupported variable %q", key)
	}
	out, err := exec.Command("nvbootctrl", "get-current-slot").Output()
	if err != nil {
		return "", fmt.Errorf("bootloader: cboot: %w", err)
	}
	return trimTrailingNewline(string(out)), nil
}

func (c *CBootBootloader) SetEnv(vars map[string]string) error {
	slot, ok := vars["slot"]
	if !ok {
		if len(vars) == 0 {
			return nil
		}
		return fmt.Errorf("bootloader: cboot: only the \"slot\" variable is supported")
	}
	if err := exec.Command("nvbootctrl", "set-active-boot-slot", slot).Run(); err != nil {
		return fmt.Errorf("bootloader: cboot: %w", err)
	}
	return nil
}
