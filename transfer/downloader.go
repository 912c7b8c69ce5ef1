// Package transfer implements the download engine: resumable single-stream
// retrieval and multi-connection segmented retrieval over FTP.
package transfer

import (
	"io"
	"sync/atomic"
	"time"

	"turboftp/config"
	"turboftp/progress"
	"turboftp/retry"
)

// retryBaseDelay is the base inter-attempt delay for download retries; the
// n-th failed attempt waits n times this long before the next try.
const retryBaseDelay = 1500 * time.Millisecond

// Session is one authenticated server connection, as the engine sees it.
// *ftpconn.Session satisfies this.
type Session interface {
	RetrFrom(path string, offset uint64) (io.ReadCloser, error)
	FileSize(path string) (int64, error)
	Quit() error
}

// Dialer opens fresh sessions. Every retry attempt and every segment worker
// dials its own connection; sessions are never shared between them.
type Dialer interface {
	Dial() (Session, error)
}

// Request describes one download.
type Request struct {
	RemotePath string
	LocalPath  string

	// ExpectedSize is the remote size in bytes when already known (from a
	// listing), or 0 to have the engine ask the server. Segmented downloads
	// require a known size.
	ExpectedSize int64

	// Segments is the requested connection count for a segmented download.
	// Values below 2 mean single-stream.
	Segments int
}

// Downloader runs downloads against a Dialer. It is safe to run one download
// at a time per Downloader; segment workers inside that download run
// concurrently.
type Downloader struct {
	Dialer Dialer
	Config config.Config

	// Logf, if set, receives retry and lifecycle messages.
	Logf func(format string, args ...interface{})

	// Sleep overrides the retry sleep, for tests.
	Sleep func(time.Duration)

	stop    int32
	retries int64
}

// RequestStop asks the running download to stop at the next chunk boundary.
// Bytes already written stay on disk so a later run can resume.
func (d *Downloader) RequestStop() {
	atomic.StoreInt32(&d.stop, 1)
}

// ClearStop rearms the downloader after a stop.
func (d *Downloader) ClearStop() {
	atomic.StoreInt32(&d.stop, 0)
}

func (d *Downloader) stopRequested() bool {
	return atomic.LoadInt32(&d.stop) == 1
}

// Retries reports how many retry attempts the downloader has made so far.
func (d *Downloader) Retries() int64 {
	return atomic.LoadInt64(&d.retries)
}

// Download runs req with the appropriate strategy: segmented when more than
// one segment is requested and the remote size is known, single-stream
// otherwise.
func (d *Downloader) Download(req Request, onProgress progress.Func, onSegment progress.SegmentFunc) error {
	if req.Segments > 1 && req.ExpectedSize > 0 {
		return d.Segmented(req, onSegment)
	}
	return d.Single(req, onProgress)
}

func (d *Downloader) logf(format string, args ...interface{}) {
	if d.Logf != nil {
		d.Logf(format, args...)
	}
}

func (d *Downloader) policy() retry.Policy {
	return retry.Policy{
		Attempts: d.Config.DownloadRetries,
		Delay:    retryBaseDelay,
		Sleep:    d.Sleep,
		OnRetry: func(op string, attempt int, err error) {
			atomic.AddInt64(&d.retries, 1)
			d.logf("retrying %s (attempt %d failed: %v)", op, attempt, err)
		},
	}
}

func (d *Downloader) blockSize() int {
	if d.Config.BlockSize > 0 {
		return int(d.Config.BlockSize)
	}
	return 64 * 1024
}
