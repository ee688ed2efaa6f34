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
	"compress/zlib"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Decompress returns a Stage for the named compression codec. An empty or
// "none" name returns a pass-through stage.
func Decompress(codec string) Stage {
	switch codec {
	case "", "none":
		return func(src io.Reader) (io.Reader, func() error, error) {
			return src, nil, nil
		}
	case "zlib":
		return decompressZlib
	case "zstd":
		return decompressZstd
	default:
		name := codec
		return func(src io.Reader) (io.Reader, func() error, error) {
			return nil, nil, &DecompressError{Codec: name, Detail: "unknown compression codec"}
		}
	}
}

func decompressZlib(src io.Reader) (io.Reader, func() error, error) {
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, nil, &DecompressError{Codec: "zlib", Detail: err.Error()}
	}
	return zr, zr.Close, nil
}

func decompressZstd(src io.Reader) (io.Reader, func() error, error) {
	zr, err := zstd.NewReader(src)
	if err != nil {
		return nil, nil, &DecompressError{Codec: "zstd", Detail: err.Error()}
	}
	cleanup := func() error {
		zr.Close()
		return nil
	}
	return zr, cleanup, nil
}
