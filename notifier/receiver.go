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
	"bytes"
	"encoding/json"
	"net"
	"os"

	"github.com/sirupsen/logrus"
)

// Receiver listens on a Unix datagram socket for newline-delimited JSON
// records written by a subprocess (a script handler's own progress
// reporting) and republishes them on a Bus, so external scripts and the
// in-process coordinator share one progress stream.
type Receiver struct {
	conn *net.UnixConn
	bus  *Bus
	log  *logrus.Entry
}

// ListenReceiver creates the socket at path (removing any stale file
// left from a previous run) and returns a Receiver ready for Run.
func ListenReceiver(path string, bus *Bus, log *logrus.Entry) (*Receiver, error) {
	os.Remove(path)
	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, err
	}
	return &Receiver{conn: conn, bus: bus, log: log}, nil
}

// Run reads datagrams until the socket is closed, republishing each
// decodable line on the bus. Malformed lines are logged and skipped
// rather than aborting the loop: one misbehaving script should not cut
// off progress reporting for the artifacts after it.
func (r *Receiver) Run() {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := r.conn.ReadFromUnix(buf)
		if err != nil {
			return
		}
		for _, line := range bytes.Split(bytes.TrimRight(buf[:n], "\n"), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			var w wireRecord
			if err := json.Unmarshal(line, &w); err != nil {
				if r.log != nil {
					r.log.WithError(err).Warn("notifier: dropping malformed record")
				}
				continue
			}
			r.bus.Publish(fromWire(w))
		}
	}
}

func (r *Receiver) Close() error { return r.conn.Close() }

func fromWire(w wireRecord) Record {
	level := LevelInfo
	switch w.Level {
	case "warning":
		level = LevelWarning
	case "error":
		level = LevelError
	}
	return Record{Level: level, Phase: w.Phase, Message: w.Message, ErrorCode: w.Code, Percent: w.Percent}
}
