package transfer

import "io"

// quotaReader caps reads at a fixed byte quota. Once the quota is met it
// reports io.EOF without touching the underlying stream again; the caller
// then closes the data connection even though the server is still sending.
type quotaReader struct {
	r         io.Reader
	remaining int64
}

func (q *quotaReader) Read(p []byte) (int, error) {
	if q.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > q.remaining {
		p = p[:q.remaining]
	}
	n, err := q.r.Read(p)
	q.remaining -= int64(n)
	return n, err
}
