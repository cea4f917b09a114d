package order

import (
	crand "crypto/rand"
	"math/rand/v2"
	"strings"
)

const (
	TrackingPrefix   = "TRK-"
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingLength   = 8
	// largest multiple of len(trackingAlphabet) that fits in a byte; bytes above it are rejected
	// so every symbol is equally likely
	trackingByteLimit = 252
)

// TokenSource produces tracking numbers of the form TRK-XXXXXXXX.
type TokenSource interface {
	Next() string
}

// NewTokenSource picks the system cryptographic source when it can be read, otherwise a
// pseudo-random one.
func NewTokenSource() TokenSource {
	if cryptoAvailable() {
		return cryptoSource{}
	}
	return pseudoSource{}
}

func cryptoAvailable() bool {
	var probe [1]byte
	_, err := crand.Read(probe[:])
	return err == nil
}

type cryptoSource struct{}

func (cryptoSource) Next() string {
	var sb strings.Builder
	sb.Grow(len(TrackingPrefix) + trackingLength)
	sb.WriteString(TrackingPrefix)

	buf := make([]byte, trackingLength*2)
	n := 0
	for n < trackingLength {
		if _, err := crand.Read(buf); err != nil {
			return pseudoSource{}.Next()
		}
		for _, b := range buf {
			if b >= trackingByteLimit {
				continue
			}
			sb.WriteByte(trackingAlphabet[int(b)%len(trackingAlphabet)])
			n++
			if n == trackingLength {
				break
			}
		}
	}
	return sb.String()
}

type pseudoSource struct{}

func (pseudoSource) Next() string {
	b := make([]byte, trackingLength)
	for i := range b {
		b[i] = trackingAlphabet[rand.IntN(len(trackingAlphabet))]
	}
	return TrackingPrefix + string(b)
}

// ValidTracking reports whether s looks like a tracking number this service generates.
func ValidTracking(s string) bool {
	if !strings.HasPrefix(s, TrackingPrefix) || len(s) != len(TrackingPrefix)+trackingLength {
		return false
	}
	for _, r := range s[len(TrackingPrefix):] {
		if !strings.ContainsRune(trackingAlphabet, r) {
			return false
		}
	}
	return true
}
