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

// Package archive implements a forward-only reader for the "newc" ASCII
// cpio layout used to carry an update package: a sequence of
// (header, name, payload) entries, each padded to a 4-byte boundary, ending
// in a zero-length "TRAILER!!!" sentinel. Nothing is ever seeked; each
// payload byte is read from the upstream source exactly once.
package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const (
	magic         = "070701"
	headerLen     = 110
	trailerName   = "TRAILER!!!"
	numHexFields  = 13
	hexFieldWidth = 8
)

// Header describes one archive entry, decoded from the fixed 110-byte ASCII
// cpio header plus the name that follows it.
type Header struct {
	Name     string
	Size     int64
	Mode     uint32
	MTime    uint32
	Ino      uint32
	DevMajor uint32
	DevMinor uint32
}

// IsTrailer reports whether this header is the end-of-archive sentinel.
func (h *Header) IsTrailer() bool {
	return h.Name == trailerName
}

// Reader parses a cpio newc stream one entry at a time. The zero value is
// not usable; construct one with Open.
type Reader struct {
	r      *bufio.Reader
	offset int64

	cur          *Header
	payloadRd    *boundedReader
	curRemaining int64 // payload bytes not yet delivered to the caller
	padOwed      int64 // pad bytes still owed once curRemaining reaches 0
	done         bool
}

// Open binds a Reader to an upstream byte source. The source is read
// strictly forward; it may be a file, a socket, or any io.Reader.
func Open(source io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(source, 64*1024)}
}

// Next parses the next header. It is a programming error to call Next again
// before a previously returned payload reader (see Payload) has been fully
// drained or explicitly discarded with Skip; Next rejects that with an
// error rather than silently desynchronizing the stream.
//
// Next returns io.EOF once the TRAILER!!! sentinel has been consumed. A
// short read in the middle of a header is reported as a *FormatError
// (distinct from a clean io.EOF at an entry boundary).
func (r *Reader) Next() (*Header, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.cur != nil {
		if r.curRemaining > 0 {
			return nil, fmt.Errorf("archive: Next called on %q before its payload (%d bytes) was fully consumed", r.cur.Name, r.curRemaining)
		}
		if r.padOwed > 0 {
			if err := r.discard(r.padOwed); err != nil {
				return nil, newFormatError(r.offset, "short payload padding read: %v", err)
			}
			r.padOwed = 0
		}
		r.payloadRd = nil
	}

	var raw [headerLen]byte
	n, err := io.ReadFull(r.r, raw[:])
	if err != nil {
		if n == 0 && err == io.EOF {
			return nil, newFormatError(r.offset, "unexpected end of archive (missing TRAILER!!! sentinel)")
		}
		return nil, newFormatError(r.offset, "short header read: %v", err)
	}
	r.offset += int64(n)

	hdr, err := parseHeader(raw[:], r.offset-headerLen)
	if err != nil {
		return nil, err
	}

	nameLen := hdr.nameSize
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r.r, nameBuf); err != nil {
		return nil, newFormatError(r.offset, "short name read: %v", err)
	}
	r.offset += int64(nameLen)
	name := string(bytes.TrimRight(nameBuf, "\x00"))

	if pad := padLen(headerLen + int64(nameLen)); pad > 0 {
		if err := r.discard(pad); err != nil {
			return nil, newFormatError(r.offset, "short name padding read: %v", err)
		}
	}

	h := &Header{
		Name:     name,
		Size:     hdr.fileSize,
		Mode:     hdr.mode,
		MTime:    hdr.mtime,
		Ino:      hdr.ino,
		DevMajor: hdr.rdevMajor,
		DevMinor: hdr.rdevMinor,
	}
	r.cur = h
	r.curRemaining = h.Size
	r.padOwed = padLen(h.Size)
	r.payloadRd = nil

	if h.IsTrailer() {
		r.done = true
	}
	return h, nil
}

// Payload returns a reader delivering exactly the current entry's declared
// size in bytes. Once it is exhausted, the next call to Next internally
// skips the pad bytes up to the next header. Calling Payload more than once
// for the same entry returns the same bounded reader.
func (r *Reader) Payload() io.Reader {
	if r.cur == nil {
		return errReader{fmt.Errorf("archive: Payload called before Next")}
	}
	if r.payloadRd == nil {
		r.payloadRd = &boundedReader{src: r.r, remaining: &r.curRemaining, archOffset: &r.offset}
	}
	return r.payloadRd
}

// Skip discards the current entry's payload without the caller reading it.
func (r *Reader) Skip() error {
	if r.cur == nil {
		return fmt.Errorf("archive: Skip called before Next")
	}
	p := r.Payload()
	_, err := io.Copy(io.Discard, p)
	return err
}

func (r *Reader) discard(n int64) error {
	written, err := io.CopyN(io.Discard, r.r, n)
	r.offset += written
	return err
}

func padLen(n int64) int64 {
	if rem := n % 4; rem != 0 {
		return 4 - rem
	}
	return 0
}

type rawHeader struct {
	ino       uint32
	mode      uint32
	mtime     uint32
	fileSize  int64
	rdevMajor uint32
	rdevMinor uint32
	nameSize  int64
}

func parseHeader(raw []byte, offset int64) (*rawHeader, error) {
	if string(raw[:6]) != magic {
		return nil, newFormatError(offset, "bad magic %q (expected %q)", raw[:6], magic)
	}
	fields := raw[6:headerLen]
	hex := func(i int) (uint32, error) {
		start := i * hexFieldWidth
		s := string(fields[start : start+hexFieldWidth])
		v, err := parseHex32(s)
		if err != nil {
			return 0, newFormatError(offset, "non-hex header field %d (%q): %v", i, s, err)
		}
		return v, nil
	}

	ino, err := hex(0)
	if err != nil {
		return nil, err
	}
	mode, err := hex(1)
	if err != nil {
		return nil, err
	}
	// fields 2 (uid), 3 (gid), 4 (nlink) are not needed by the core pipeline.
	mtime, err := hex(5)
	if err != nil {
		return nil, err
	}
	fileSize, err := hex(6)
	if err != nil {
		return nil, err
	}
	// fields 7/8 (devmajor/devminor) describe the archive member's own device,
	// not the target device; not needed here.
	rdevMajor, err := hex(9)
	if err != nil {
		return nil, err
	}
	rdevMinor, err := hex(10)
	if err != nil {
		return nil, err
	}
	nameSize, err := hex(11)
	if err != nil {
		return nil, err
	}
	// field 12 (check) is unused in the newc variant.

	return &rawHeader{
		ino:       ino,
		mode:      mode,
		mtime:     mtime,
		fileSize:  int64(fileSize),
		rdevMajor: rdevMajor,
		rdevMinor: rdevMinor,
		nameSize:  int64(nameSize),
	}, nil
}

func parseHex32(s string) (uint32, error) {
	var v uint32
	for _, c := range []byte(s) {
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q", c)
		}
		v = v<<4 | d
	}
	return v, nil
}

// boundedReader delivers exactly `remaining` bytes from src and then returns
// io.EOF forever, without ever reading past its own entry into the next
// header.
type boundedReader struct {
	src        *bufio.Reader
	remaining  *int64
	archOffset *int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if *b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > *b.remaining {
		p = p[:*b.remaining]
	}
	n, err := b.src.Read(p)
	*b.remaining -= int64(n)
	*b.archOffset += int64(n)
	if err == io.EOF && *b.remaining > 0 {
		return n, &FormatError{Offset: *b.archOffset, Reason: "payload under-read: upstream EOF before declared size was reached"}
	}
	return n, err
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
