package vm

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// awakeableID derives the externally shareable identifier for an awakeable:
// a fixed "prom_1" prefix followed by the URL-safe, unpadded base64 of the
// invocation id bytes concatenated with id as a big-endian uint32.
// SysCreateAwakeable passes the awakeable's completion id, not a journal
// command index.
func awakeableID(invocationID []byte, id uint32) string {
	buf := make([]byte, len(invocationID)+4)
	copy(buf, invocationID)
	binary.BigEndian.PutUint32(buf[len(invocationID):], id)
	return "prom_1" + base64.RawURLEncoding.EncodeToString(buf)
}

// computeRandomSeed derives the invocation's deterministic random seed from
// its id: the first 8 bytes of SHA-256(invocation id), read big-endian. Every
// replay of the same invocation re-derives the same seed, so a handler's use
// of SysRandom-style helpers stays deterministic across retries.
func computeRandomSeed(invocationID []byte) uint64 {
	sum := sha256.Sum256(invocationID)
	return binary.BigEndian.Uint64(sum[:8])
}

// wakeUpTimeMillis converts a relative sleep duration requested now into the
// absolute wall-clock instant (milliseconds since the Unix epoch) the
// orchestrator should wake the invocation at. Computing this once, at the
// point sys_sleep is called, is what makes the recorded entry replay
// deterministically: a replayed SleepCommand always carries the same
// wake-up time regardless of how long the retry loop itself takes.
func wakeUpTimeMillis(now time.Time, d time.Duration) uint64 {
	return uint64(now.Add(d).UnixMilli())
}
