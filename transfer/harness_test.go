package transfer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"turboftp/config"
)

// fakeServer hands out in-memory sessions. failAt maps a RETR offset to a
// queue of failure points: the next stream opened at that offset errors out
// after serving that many bytes. Offsets without a queue serve to the end.
type fakeServer struct {
	mu      sync.Mutex
	data    []byte
	failAt  map[int64][]int64
	dials   int
	offsets []int64
}

func (s *fakeServer) Dial() (Session, error) {
	s.mu.Lock()
	s.dials++
	s.mu.Unlock()
	return &fakeSession{srv: s}, nil
}

func (s *fakeServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *fakeServer) retrOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.offsets...)
}

type fakeSession struct {
	srv *fakeServer
}

func (fs *fakeSession) RetrFrom(path string, offset uint64) (io.ReadCloser, error) {
	s := fs.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	off := int64(offset)
	s.offsets = append(s.offsets, off)
	if off > int64(len(s.data)) {
		return nil, fmt.Errorf("bad offset %d", off)
	}

	failAfter := int64(-1)
	if queue := s.failAt[off]; len(queue) > 0 {
		failAfter = queue[0]
		s.failAt[off] = queue[1:]
	}
	return &fakeStream{data: s.data[off:], failAfter: failAfter}, nil
}

func (fs *fakeSession) FileSize(path string) (int64, error) {
	fs.srv.mu.Lock()
	defer fs.srv.mu.Unlock()
	return int64(len(fs.srv.data)), nil
}

func (fs *fakeSession) Quit() error { return nil }

// fakeStream serves bytes until failAfter, then errors like a dropped
// connection. failAfter < 0 means serve everything.
type fakeStream struct {
	data      []byte
	pos       int64
	failAfter int64
}

func (r *fakeStream) Read(p []byte) (int, error) {
	if r.failAfter >= 0 && r.pos >= r.failAfter {
		return 0, errors.New("connection reset by peer")
	}
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	if r.failAfter >= 0 && r.pos+int64(n) > r.failAfter {
		n = int(r.failAfter - r.pos)
	}
	r.pos += int64(n)
	return n, nil
}

func (r *fakeStream) Close() error { return nil }

func patternData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func testDownloader(srv *fakeServer) *Downloader {
	return &Downloader{
		Dialer: srv,
		Config: config.Config{
			DownloadRetries: 3,
			BlockSize:       512,
			MaxSegments:     8,
		},
		Sleep: func(time.Duration) {},
	}
}
