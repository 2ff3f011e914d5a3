package cache

import (
	"encoding/binary"
	"math"

	"github.com/23skdu/wordscope/internal/query"
	"github.com/cespare/xxhash/v2"
)

// HashRequest computes a 64-bit key over every field that affects a query
// result: kind, token, vector bits, k, the exclude-self flag and the
// analogy terms. Strings are length-prefixed so adjacent fields cannot
// collide by concatenation.
func HashRequest(req *query.Request) uint64 {
	h := xxhash.New()
	var buf [8]byte

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(s)
	}
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	writeString(string(req.Kind))
	writeString(req.Token)

	writeUint(uint64(len(req.Vector)))
	for _, v := range req.Vector {
		writeUint(uint64(math.Float32bits(v)))
	}

	writeUint(uint64(req.K))
	if req.ExcludeSelf {
		writeUint(1)
	} else {
		writeUint(0)
	}

	writeUint(uint64(len(req.Positive)))
	for _, term := range req.Positive {
		writeString(term)
	}
	writeUint(uint64(len(req.Negative)))
	for _, term := range req.Negative {
		writeString(term)
	}

	return h.Sum64()
}
