package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"turboftp/progress"
	"turboftp/retry"
)

// Single downloads req over one connection, resuming from whatever is already
// on disk. Each retry attempt re-reads the local size and dials a fresh
// connection, so a crashed attempt's bytes are never fetched twice. When the
// local file already covers the known remote size the call returns without
// touching the network.
func (d *Downloader) Single(req Request, onProgress progress.Func) error {
	if req.ExpectedSize > 0 && localSize(req.LocalPath) >= req.ExpectedSize {
		if onProgress != nil {
			onProgress(progress.Snapshot{Bytes: req.ExpectedSize, Total: req.ExpectedSize})
		}
		d.logf("%s already complete, nothing to do", req.LocalPath)
		return nil
	}

	if dir := filepath.Dir(req.LocalPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &TransferError{Path: req.RemotePath, Err: fmt.Errorf("create local directory: %v", err)}
		}
	}

	err := d.policy().Do("download "+req.RemotePath, func() error {
		return d.singleAttempt(req, onProgress)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStopped) {
		return ErrStopped
	}
	return &TransferError{Path: req.RemotePath, Err: err}
}

func (d *Downloader) singleAttempt(req Request, onProgress progress.Func) error {
	offset := localSize(req.LocalPath)
	total := req.ExpectedSize

	sess, err := d.Dialer.Dial()
	if err != nil {
		return err
	}
	defer sess.Quit()

	if total <= 0 {
		if size, err := sess.FileSize(req.RemotePath); err == nil {
			total = size
		}
	}
	if total > 0 && offset >= total {
		if onProgress != nil {
			onProgress(progress.Snapshot{Bytes: total, Total: total})
		}
		return nil
	}

	f, err := os.OpenFile(req.LocalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return retry.Permanent(fmt.Errorf("open %s: %v", req.LocalPath, err))
	}
	defer f.Close()

	rc, err := sess.RetrFrom(req.RemotePath, uint64(offset))
	if err != nil {
		return fmt.Errorf("RETR at offset %d: %v", offset, err)
	}
	defer rc.Close()

	start := time.Now()
	var attemptBytes int64
	buf := make([]byte, d.blockSize())
	for {
		if d.stopRequested() {
			return retry.Permanent(ErrStopped)
		}
		n, rerr := rc.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return retry.Permanent(fmt.Errorf("write %s: %v", req.LocalPath, werr))
			}
			attemptBytes += int64(n)
			emit(onProgress, offset+attemptBytes, total, attemptBytes, start)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read at offset %d: %v", offset+attemptBytes, rerr)
		}
	}

	if total > 0 && offset+attemptBytes < total {
		return fmt.Errorf("connection closed after %d of %d bytes", offset+attemptBytes, total)
	}
	return nil
}

// emit computes speed and ETA over this attempt's bytes only, so a resumed
// attempt does not inherit the dead time of a failed one.
func emit(fn progress.Func, bytes, total, attemptBytes int64, start time.Time) {
	if fn == nil {
		return
	}
	elapsed := time.Since(start).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(attemptBytes) / elapsed
	}
	var eta float64
	if speed > 0 && total > 0 && total > bytes {
		eta = float64(total-bytes) / speed
	}
	fn(progress.Snapshot{Bytes: bytes, Total: total, SpeedBps: speed, ETASeconds: eta})
}

// localSize returns the current on-disk size, or 0 when the file is absent.
func localSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
