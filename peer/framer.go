package peer

import "bytes"

const (
	delimiter    = '\n'
	maxFrameSize = 1 << 20
)

// Framer rebuilds newline terminated frames from arbitrarily chunked reads.
type Framer struct {
	buf []byte
}

// Feed appends chunk and returns every frame completed by it, without the
// delimiter. An incomplete tail stays buffered for the next call. Blank
// frames are skipped. When the buffered tail grows past the size limit it is
// discarded and ErrFrameTooLarge is returned along with the frames found so
// far.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(f.buf, delimiter)
		if i < 0 {
			break
		}
		frame := bytes.TrimSpace(f.buf[:i])
		if len(frame) > 0 {
			frames = append(frames, append([]byte(nil), frame...))
		}
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > maxFrameSize {
		f.buf = nil
		return frames, ErrFrameTooLarge
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return frames, nil
}

// Pending returns the number of buffered bytes not yet terminated.
func (f *Framer) Pending() int {
	return len(f.buf)
}
