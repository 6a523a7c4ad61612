package transport

import "crypto/rand"

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuv"

// Token returns a random base-32 token of n characters. Lengths outside
// [6, 11] fall back to 6.
func Token(n int) string {
	if n < 6 || n > 11 {
		n = 6
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]&31]
	}
	return string(b)
}
