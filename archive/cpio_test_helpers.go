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

package archive

import (
	"bytes"
	"fmt"
)

// Entry is one (name, payload) pair used by BuildTestArchive.
type Entry struct {
	Name    string
	Payload []byte
}

// BuildTestArchive encodes entries as a newc cpio stream, including the
// trailing TRAILER!!! sentinel. It is exported so other packages in this
// module (manifest, transform, transaction) can synthesize fixtures without
// depending on an external cpio tool.
func BuildTestArchive(entries []Entry) []byte {
	var buf bytes.Buffer
	all := append(append([]Entry{}, entries...), Entry{Name: trailerName})
	for _, e := range all {
		writeEntry(&buf, e.Name, e.Payload)
	}
	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, name string, payload []byte) {
	nameWithNul := append([]byte(name), 0)
	hdr := fmt.Sprintf("%s%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
		magic,
		0,                // ino
		0o100644,         // mode
		0,                // uid
		0,                // gid
		1,                // nlink
		0,                // mtime
		len(payload),     // filesize
		0,                // devmajor
		0,                // devminor
		0,                // rdevmajor
		0,                // rdevminor
		len(nameWithNul), // namesize
		0,                // check
	)
	buf.WriteString(hdr)
	buf.Write(nameWithNul)
	padTo4(buf, int64(headerLen+len(nameWithNul)))
	buf.Write(payload)
	padTo4(buf, int64(len(payload)))
}

func padTo4(buf *bytes.Buffer, n int64) {
	for i := int64(0); i < padLen(n); i++ {
		buf.WriteByte(0)
	}
}
