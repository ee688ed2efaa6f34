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
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// wireRecord is the newline-delimited JSON shape sent over the progress
// socket that Receiver listens on. Field names are short and stable since external scripts parse
// them directly.
type wireRecord struct {
	Level   string `json:"level"`
	Phase   string `json:"phase"`
	Message string `json:"msg"`
	Code    string `json:"code,omitempty"`
	Percent int     `json:"pct"`
}

// UnixTransport sends Records as newline-delimited JSON datagrams over a
// Unix domain socket. It is the primary transport; a subprocess-run
// script writes the same wire format back to be picked up by Receiver.
type UnixTransport struct {
	conn net.Conn
}

// DialUnixTransport connects to a unix datagram socket at path. The
// socket must already be bound: if no listener is present, the dial
// fails and the error is returned.
func DialUnixTransport(path string) (*UnixTransport, error) {
	conn, err := net.Dial("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("notifier: dialing %s: %w", path, err)
	}
	return &UnixTransport{conn: conn}, nil
}

func (t *UnixTransport) Send(rec Record) error {
	data, err := json.Marshal(toWire(rec))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	t.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = t.conn.Write(data)
	return err
}

func (t *UnixTransport) Close() error { return t.conn.Close() }

// TCPTransport is the loopback fallback used on platforms without Unix
// domain sockets (e.g. when cross-compiling for hosts without one
// available to the test harness); the wire format is identical.
type TCPTransport struct {
	conn net.Conn
}

// DialTCPTransport connects to a TCP loopback address such as
// "127.0.0.1:8889".
func DialTCPTransport(addr string) (*TCPTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("notifier: dialing %s: %w", addr, err)
	}
	return &TCPTransport{conn: conn}, nil
}

func (t *TCPTransport) Send(rec Record) error {
	data, err := json.Marshal(toWire(rec))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	t.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = t.conn.Write(data)
	return err
}

func (t *TCPTransport) Close() error { return t.conn.Close() }

func toWire(rec Record) wireRecord {
	return wireRecord{
		Level:   rec.Level.String(),
		Phase:   rec.Phase,
		Message: rec.Message,
		Code:    rec.ErrorCode,
		Percent: rec.Percent,
	}
}
