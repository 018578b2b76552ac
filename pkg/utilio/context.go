package utilio

import (
	"context"
	"io"

	"github.com/pingcap/errors"
)

var ErrTooLarge = errors.New("input exceeds size limit")

// Reader fails with ctx's error once ctx is done, and with ErrTooLarge once
// more than limit bytes have been read. A limit <= 0 means unlimited.
type Reader struct {
	ctx   context.Context //nolint:containedctx
	r     io.Reader
	limit int64
	n     int64
}

func NewReader(ctx context.Context, r io.Reader, limit int64) *Reader {
	return &Reader{ctx: ctx, r: r, limit: limit, n: 0}
}

func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err //nolint:wrapcheck
	}
	if r.limit > 0 && r.n >= r.limit {
		// one more byte tells a file of exactly limit bytes from a bigger one
		var probe [1]byte
		if n, _ := r.r.Read(probe[:]); n > 0 {
			return 0, ErrTooLarge
		}
		return 0, io.EOF
	}
	if r.limit > 0 && int64(len(p)) > r.limit-r.n {
		p = p[:r.limit-r.n]
	}
	n, err := r.r.Read(p)
	r.n += int64(n)
	return n, err //nolint:wrapcheck
}

// BytesRead is the number of bytes returned so far.
func (r *Reader) BytesRead() int64 {
	return r.n
}
