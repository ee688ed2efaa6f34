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

package transaction

import (
	"fmt"

	"github.com/swupdate-go/core/bootloader"
)

// Status is the persistent, single-character transaction marker stored
// via the bootloader adapter under DefaultStatusKey (or a configured
// equivalent). Unlike the in-memory State machine above, Status
// survives a reboot, which is the whole point: it is how the next boot
// (or the coordinator on its next run) learns whether the previous
// update committed.
type Status string

const (
	StatusAvailable Status = "available"
	StatusInProgress Status = "in-progress"
	StatusTesting    Status = "testing"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

// DefaultStatusKey is the conventional bootenv variable name this
// status is stored under; a device may configure a different one.
const DefaultStatusKey = "recovery_status"

var statusCodes = map[Status]string{
	StatusAvailable:  "0",
	StatusInProgress: "1",
	StatusTesting:    "2",
	StatusFailed:     "3",
	StatusDone:       "4",
}

var codeStatus = func() map[string]Status {
	m := make(map[string]Status, len(statusCodes))
	for st, code := range statusCodes {
		m[code] = st
	}
	return m
}()

// TransactionalBootloader is implemented by backends with native
// transaction semantics (EFI Boot Guard is the only one in this
// module). Instead of treating recovery_status as a plain key/value
// pair, StatusStore routes transitions through these three handshake
// operations. Backends without native transactions (U-Boot, GRUB) do
// not implement this interface, so StatusStore falls back to a thin
// GetEnv/SetEnv wrapper and the coordinator carries the transaction
// semantics itself.
type TransactionalBootloader interface {
	bootloader.Bootloader
	// BeginUpdate creates a new environment revision for the update
	// about to run. Called when the coordinator starts (StatusInProgress).
	BeginUpdate() error
	// FinalizeUpdate marks the new revision as the one to boot next,
	// pending confirmation. Called at commit (StatusTesting).
	FinalizeUpdate() error
	// AcknowledgeUpdate confirms the new revision booted successfully,
	// making it permanent. Called after a successful boot (StatusDone).
	AcknowledgeUpdate() error
}

// StatusStore persists transaction Status across reboots. The zero
// value is not usable; construct with NewStatusStore.
type StatusStore struct {
	bl  bootloader.Bootloader
	key string
}

// NewStatusStore binds a StatusStore to a bootloader backend. An empty
// key defaults to DefaultStatusKey.
func NewStatusStore(bl bootloader.Bootloader, key string) *StatusStore {
	if key == "" {
		key = DefaultStatusKey
	}
	return &StatusStore{bl: bl, key: key}
}

// Get reads the persisted status. An absent or unrecognized value reads
// as StatusAvailable, matching a device that has never run an update.
func (s *StatusStore) Get() (Status, error) {
	v, err := s.bl.GetEnv(s.key)
	if err != nil {
		return "", fmt.Errorf("transaction: reading %s: %w", s.key, &bootloader.Error{Backend: s.bl.Name(), Op: "GetEnv", Err: err})
	}
	if v == "" {
		return StatusAvailable, nil
	}
	st, ok := codeStatus[v]
	if !ok {
		return StatusAvailable, nil
	}
	return st, nil
}

// Set persists st. On a TransactionalBootloader, StatusInProgress,
// StatusTesting, and StatusDone are routed through the backend's own
// handshake instead of a plain key/value write; StatusAvailable and
// StatusFailed always fall back to a plain write, since no backend in
// this module exposes a native handshake operation for either.
func (s *StatusStore) Set(st Status) error {
	if tb, ok := s.bl.(TransactionalBootloader); ok {
		switch st {
		case StatusInProgress:
			return s.wrapStatusErr("BeginUpdate", tb.BeginUpdate())
		case StatusTesting:
			return s.wrapStatusErr("FinalizeUpdate", tb.FinalizeUpdate())
		case StatusDone:
			return s.wrapStatusErr("AcknowledgeUpdate", tb.AcknowledgeUpdate())
		}
	}
	code, ok := statusCodes[st]
	if !ok {
		return fmt.Errorf("transaction: unknown status %q", st)
	}
	return s.wrapStatusErr("SetEnv", s.bl.SetEnv(map[string]string{s.key: code}))
}

func (s *StatusStore) wrapStatusErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("transaction: writing %s: %w", s.key, &bootloader.Error{Backend: s.bl.Name(), Op: op, Err: err})
}
