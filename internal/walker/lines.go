package walker

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// countFileLines streams a file and counts its lines. Content must be UTF-8.
func countFileLines(fs afero.Fs, path string) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return countReader(bufio.NewReader(f))
}

// countReader counts the lines of r rune by rune, failing with ErrNotUTF8 on
// the first invalid sequence.
func countReader(r *bufio.Reader) (int, error) {
	var c lineCounter
	for {
		ch, size, err := r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c.total(), nil
			}
			return 0, err
		}
		if ch == utf8.RuneError && size == 1 {
			return 0, ErrNotUTF8
		}
		c.add(ch)
	}
}

// countLines counts line records. "\n", "\r\n" and a lone "\r" each end a
// line; a trailing partial line counts once; empty input has no lines.
func countLines(data []byte) int {
	var c lineCounter
	for _, b := range data {
		c.add(rune(b))
	}
	return c.total()
}

type lineCounter struct {
	lines   int
	pending bool
	afterCR bool
}

func (c *lineCounter) add(ch rune) {
	switch ch {
	case '\n':
		if c.afterCR {
			// second half of "\r\n"
			c.afterCR = false
			return
		}
		c.lines++
		c.pending = false
	case '\r':
		c.lines++
		c.pending = false
		c.afterCR = true
		return
	default:
		c.pending = true
	}
	c.afterCR = false
}

func (c *lineCounter) total() int {
	if c.pending {
		return c.lines + 1
	}
	return c.lines
}
