// Package emails generates fake hashed email identifiers for the
// example binaries and benchmarks, one "e:<hex>" line each.
package emails

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
)

// from fake_hashes.sh:
// 	Usage: fake_hashes.sh n_hashes length prefix
//
// generate n_hashes of length length and prefix them with prefix
//
// example:
//  e:0e1f461bbefa6e07cc2ef06b9ee1ed25101e24d4345af266ed2f5a58bcd26c5e
//  e:59245d7c68b28404e068b15cba430082549b845ab412c4c3b31fb8632fd794e1
//
// hashes are random blobs of length length expressed in hex and prefixed with a string

const (
	Prefix  = "e:"
	HashLen = 32
)

// Common generates the common segment of n hashes of hashLen bytes
func Common(n, hashLen int) (common []byte) {
	common = make([]byte, n*hashLen)
	if _, err := rand.Read(common); err != nil {
		log.Fatalf("could not generate %d hashes for the common portion", n)
	}
	return
}

// Mix in from common and add n new fresh identifiers, all of hashLen bytes
func Mix(common []byte, n, hashLen int) <-chan []byte {
	c1 := commons(common, hashLen)
	c2 := freshes(n, hashLen)
	return mixes(c1, c2)
}

// commons writes hashLen chunks from b to a channel and then closes it
func commons(b []byte, hashLen int) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for i := 0; i < len(b)/hashLen; i++ {
			out <- b[i*hashLen : (i+1)*hashLen]
		}
	}()
	return out
}

// freshes writes total fresh hashes to a channel and then closes it
func freshes(total, hashLen int) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for i := 0; i < total; i++ {
			b := make([]byte, hashLen)
			if _, err := rand.Read(b); err != nil {
				log.Fatalf("could not generate fresh hash %d", i)
			}
			out <- b
		}
	}()
	return out
}

// prefix hex encodes value behind Prefix
func prefix(value []byte) []byte {
	out := make([]byte, len(Prefix)+hex.EncodedLen(len(value)))
	copy(out, Prefix)
	hex.Encode(out[len(Prefix):], value)
	return out
}

// mixes reads c1 & c2 to exhaustion, adds the prefix,
// writes the output to a channel and then closes it
func mixes(c1, c2 <-chan []byte) <-chan []byte {
	var ws sync.WaitGroup
	out := make(chan []byte)
	ws.Add(2)
	f := func(c <-chan []byte) {
		defer ws.Done()
		for b := range c {
			out <- prefix(b)
		}
	}
	// fan in c1 & c2
	go f(c1)
	go f(c2)
	go func() {
		ws.Wait()
		close(out)
	}()

	return out
}
