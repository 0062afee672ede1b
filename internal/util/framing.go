package util

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
)

// SafeReadLine blocks until a whole line can be read or
// r returns an error. The trailing \n is stripped.
func SafeReadLine(r *bufio.Reader) (line []byte, err error) {
	line, err = r.ReadBytes('\n')
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	return
}

// ReadIdentifiers reads at most n newline separated identifiers
// from r. Empty lines are skipped.
func ReadIdentifiers(n int64, r io.Reader) ([][]byte, error) {
	var ids = make([][]byte, 0, n)
	src := bufio.NewReader(r)
	for int64(len(ids)) < n {
		id, err := SafeReadLine(src)
		if len(id) != 0 {
			ids = append(ids, id)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return ids, errors.Wrap(err, "reading identifiers")
		}
	}

	return ids, nil
}
