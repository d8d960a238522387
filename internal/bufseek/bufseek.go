// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package bufseek provides a buffered [io.Reader]
// that also implements [io.Seeker] and [io.ByteScanner],
// suitable for feeding a scanner from a seekable source.
package bufseek

import (
	"errors"
	"fmt"
	"io"
)

const defaultBufSize = 4096

// Reader implements buffering for an [io.ReadSeeker] object.
type Reader struct {
	buf  []byte
	rd   io.ReadSeeker
	r, w int
	err  error
	// pos is the stream position of the beginning of buf,
	// or -1 when it has not been determined yet.
	pos int64
}

// NewReaderSize returns a new [Reader]
// whose buffer has at least the specified size.
// If rd is already a *Reader with a large enough buffer,
// it is returned directly.
func NewReaderSize(rd io.ReadSeeker, size int) *Reader {
	if b, ok := rd.(*Reader); ok && len(b.buf) >= size {
		return b
	}
	return &Reader{
		buf: make([]byte, max(size, 16)),
		rd:  rd,
		pos: -1,
	}
}

// NewReader returns a new [Reader] whose buffer has the default size.
func NewReader(rd io.ReadSeeker) *Reader {
	return NewReaderSize(rd, defaultBufSize)
}

// addPosition advances a stream position by delta,
// validating that the computed position is not negative.
func addPosition(pos, delta int64) (int64, error) {
	newPos := pos + delta
	if newPos < 0 {
		return 0, fmt.Errorf("bufseek: position %d out of range", newPos)
	}
	return newPos, nil
}

// advance moves the cached buffer-start position forward by n bytes.
func (b *Reader) advance(n int) {
	if b.pos < 0 {
		return
	}
	newPos, err := addPosition(b.pos, int64(n))
	if err != nil {
		// A buffer slides forward only; treat a wrapped position
		// as unknown rather than propagating garbage.
		b.pos = -1
		return
	}
	b.pos = newPos
}

func (b *Reader) fill() {
	if b.r > 0 {
		copy(b.buf, b.buf[b.r:b.w])
		b.advance(b.r)
		b.w -= b.r
		b.r = 0
	}
	if b.w >= len(b.buf) {
		panic("bufseek: tried to fill full buffer")
	}
	n, err := b.rd.Read(b.buf[b.w:])
	if n < 0 {
		panic(errNegativeRead)
	}
	b.w += n
	if err != nil {
		b.err = err
	} else if n == 0 {
		b.err = io.ErrNoProgress
	}
}

func (b *Reader) readErr() error {
	err := b.err
	b.err = nil
	return err
}

// ReadByte reads and returns a single byte.
// If no byte is available, it returns an error.
func (b *Reader) ReadByte() (byte, error) {
	for b.r == b.w {
		if b.err != nil {
			return 0, b.readErr()
		}
		b.fill()
	}
	c := b.buf[b.r]
	b.r++
	return c, nil
}

// UnreadByte unreads the byte most recently read with [Reader.ReadByte].
// Only bytes still in the buffer can be unread.
func (b *Reader) UnreadByte() error {
	if b.r == 0 {
		return errors.New("bufseek: UnreadByte with nothing to unread")
	}
	b.r--
	return nil
}

// Read reads data into p.
// The bytes are taken from at most one Read on the underlying reader,
// so n may be less than len(p).
func (b *Reader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		if b.Buffered() > 0 {
			return 0, nil
		}
		return 0, b.readErr()
	}
	if b.r == b.w {
		if b.err != nil {
			return 0, b.readErr()
		}
		if len(p) >= len(b.buf) {
			// Large read with an empty buffer:
			// read directly into p to avoid the copy.
			n, b.err = b.rd.Read(p)
			if n < 0 {
				panic(errNegativeRead)
			}
			b.advance(b.r)
			b.advance(n)
			b.r = 0
			b.w = 0
			return n, b.readErr()
		}
		b.advance(b.r)
		b.r = 0
		b.w = 0
		b.fill()
		if b.w == 0 {
			return 0, b.readErr()
		}
	}
	n = copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}

// Seek sets the offset for the next Read to offset,
// interpreted according to whence; see the [io.Seeker] docs.
func (b *Reader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		if 0 <= offset && offset <= int64(b.Buffered()) {
			// The target is inside the buffer.
			if b.pos < 0 {
				pos, err := b.rd.Seek(0, io.SeekCurrent)
				if err != nil {
					return 0, err
				}
				start, err := addPosition(pos, -int64(b.w))
				if err != nil {
					return 0, err
				}
				b.pos = start
			}
			b.r += int(offset)
			return addPosition(b.pos, int64(b.r))
		}
		pos, err := b.rd.Seek(offset-int64(b.Buffered()), io.SeekCurrent)
		if err == nil {
			b.clear(pos)
		}
		return pos, err
	}
	pos, err := b.rd.Seek(offset, whence)
	if err == nil {
		b.clear(pos)
	}
	return pos, err
}

func (b *Reader) clear(pos int64) {
	b.pos = pos
	b.r = 0
	b.w = 0
	b.err = nil
}

// Buffered returns the number of bytes
// that can be read from the current buffer.
func (b *Reader) Buffered() int { return b.w - b.r }

var errNegativeRead = errors.New("bufseek: reader returned negative count from Read")
