package util

import (
	"bufio"
	"io"
)

// Count counts the number of identifiers (lines) in r.
func Count(r io.Reader) (int64, error) {
	var n int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		n++
	}

	return n, scanner.Err()
}
