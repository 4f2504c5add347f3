// Package sharetoken mints the opaque tokens that identify shared files.
//
// A token is a random base-36 fragment followed by the mint time in
// milliseconds, also base-36. Tokens act as bearer credentials on the
// download path: they are not registered anywhere for uniqueness, so
// correctness rests on the collision probability being negligible.
package sharetoken

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"time"
)

const (
	alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	fragmentLen = 13
)

var tokenPattern = regexp.MustCompile(`^[0-9a-z]{16,}$`)

// New returns a fresh share token.
func New() string {
	return randomFragment(fragmentLen) + strconv.FormatInt(time.Now().UnixMilli(), 36)
}

// Valid reports whether s has the shape of a minted token. It is a format
// check only; a valid-looking token may still resolve to nothing.
func Valid(s string) bool {
	return tokenPattern.MatchString(s)
}

func randomFragment(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible to do but propagate the panic.
		panic("sharetoken: " + err.Error())
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
