package sseout

import (
	"crypto/rand"
	"math/big"
)

const alnumCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomAlnum returns n random alphanumeric characters, used to mint a
// fresh "toolu_" id for each tool_use block.
func randomAlnum(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alnumCharset))))
		if err != nil {
			// crypto/rand failure indicates a broken host; fall back to a
			// fixed pattern rather than panicking mid-stream.
			buf[i] = alnumCharset[i%len(alnumCharset)]
			continue
		}
		buf[i] = alnumCharset[idx.Int64()]
	}
	return string(buf)
}
