// Package rmftest builds RMF documents for tests.
package rmftest

import (
	"encoding/binary"
	"math"

	"github.com/danmuck/rmfctl/internal/rmf"
)

// Document returns version, magic and body laid out as an RMF buffer.
func Document(version float32, magic string, body []byte) []byte {
	buf := make([]byte, rmf.VersionSize, rmf.VersionSize+len(magic)+len(body))
	binary.LittleEndian.PutUint32(buf, math.Float32bits(version))
	buf = append(buf, magic...)
	return append(buf, body...)
}

// Valid returns a supported 2.0 document around body.
func Valid(body []byte) []byte {
	return Document(2.0, rmf.Magic, body)
}

// Chunk encodes one chunk; id is truncated or space-padded to four bytes.
func Chunk(id string, data []byte) []byte {
	var idb [4]byte
	copy(idb[:], id+"    ")
	out := make([]byte, 0, 8+len(data))
	out = append(out, idb[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

// List encodes a LIST chunk holding children.
func List(children ...[]byte) []byte {
	return Chunk("LIST", Body(children...))
}

// Body encodes a counted chunk list.
func Body(chunks ...[]byte) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(chunks)))
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
