package arena

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// agentSeed derives an independent rand seed for the agent at index.
func agentSeed(seed int64, index int) int64 {
	v := uint64(seed) ^ (uint64(index+1) * 0xbf58476d1ce4e5b9)
	return int64(mix64(v))
}

// matchDigest hashes everything a replay must reproduce for one match.
func matchDigest(m *Match) string {
	h := sha256.New()
	var tmp [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	writeStr := func(s string) {
		writeU64(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeU64(uint64(m.Seq))
	writeU64(uint64(m.Game))
	writeStr(m.A.id)
	writeStr(m.B.id)
	writeStr(m.MovesA)
	writeStr(m.MovesB)
	writeU64(uint64(int64(m.ScoreA)))
	writeU64(uint64(int64(m.ScoreB)))
	writeU64(math.Float64bits(float64(m.Outcome)))
	writeU64(math.Float64bits(m.RatingA))
	writeU64(math.Float64bits(m.RatingB))
	return hex.EncodeToString(h.Sum(nil))
}
