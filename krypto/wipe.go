package krypto

import "github.com/awnumar/memguard"

// Wipe overwrites sensitive byte slices in place to reduce their lifetime in memory.
func Wipe(buffers ...[]byte) {
	for _, b := range buffers {
		if len(b) == 0 {
			continue
		}
		memguard.WipeBytes(b)
	}
}
