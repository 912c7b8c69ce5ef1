package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"turboftp/progress"
	"turboftp/retry"
)

// Segment is one contiguous byte range of a segmented download.
type Segment struct {
	ID     int
	Start  int64
	Length int64
}

// Partition splits total bytes into at most count segments of equal length
// (the last one shortened to fit). count is clamped to max; ranges that would
// be empty are dropped, so tiny files yield fewer segments than requested.
func Partition(total int64, count, max int) []Segment {
	if count < 1 {
		count = 1
	}
	if max > 0 && count > max {
		count = max
	}
	segLen := (total + int64(count) - 1) / int64(count)

	var segs []Segment
	for i := 0; i < count; i++ {
		start := int64(i) * segLen
		length := segLen
		if start+length > total {
			length = total - start
		}
		if length <= 0 {
			continue
		}
		segs = append(segs, Segment{ID: i, Start: start, Length: length})
	}
	return segs
}

// PartPath returns the temp file path for one segment of localPath.
func PartPath(localPath string, id int) string {
	return fmt.Sprintf("%s.part%d", localPath, id)
}

// Segmented downloads req over req.Segments parallel connections, one byte
// range per worker, then merges the temp files in segment order. It requires
// req.ExpectedSize to be set. If any segment exhausts its retries the merge
// is skipped, completed temp files stay on disk, and a PartialFailure names
// the failed segments.
func (d *Downloader) Segmented(req Request, onSegment progress.SegmentFunc) error {
	if req.ExpectedSize <= 0 {
		return &TransferError{Path: req.RemotePath, Err: fmt.Errorf("segmented download requires a known remote size")}
	}

	if dir := filepath.Dir(req.LocalPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &TransferError{Path: req.RemotePath, Err: fmt.Errorf("create local directory: %v", err)}
		}
	}

	segs := Partition(req.ExpectedSize, req.Segments, d.Config.MaxSegments)
	d.logf("downloading %s in %d segments of up to %s",
		req.RemotePath, len(segs), progress.FormatBytes(segs[0].Length))

	errs := make([]error, len(segs))
	var wg sync.WaitGroup
	for i, seg := range segs {
		wg.Add(1)
		go func(i int, seg Segment) {
			defer wg.Done()
			errs[i] = d.downloadSegment(req.RemotePath, req.LocalPath, seg, onSegment)
		}(i, seg)
	}
	wg.Wait()

	var merr *multierror.Error
	var failed []int
	for i, err := range errs {
		if err != nil {
			failed = append(failed, segs[i].ID)
			merr = multierror.Append(merr, fmt.Errorf("segment %d: %w", segs[i].ID, err))
		}
	}
	if len(failed) > 0 {
		return &PartialFailure{Path: req.RemotePath, Failed: failed, Err: merr.ErrorOrNil()}
	}

	if err := mergeParts(req.LocalPath, segs); err != nil {
		return &TransferError{Path: req.RemotePath, Err: err}
	}
	return nil
}

func (d *Downloader) downloadSegment(remotePath, localPath string, seg Segment, onSegment progress.SegmentFunc) error {
	part := PartPath(localPath, seg.ID)

	// highWater survives retries so reported progress never moves backwards
	// even though a failed attempt restarts the segment from scratch.
	var highWater int64
	return d.policy().Do(fmt.Sprintf("segment %d of %s", seg.ID, remotePath), func() error {
		return d.segmentAttempt(remotePath, part, seg, &highWater, onSegment)
	})
}

func (d *Downloader) segmentAttempt(remotePath, part string, seg Segment, highWater *int64, onSegment progress.SegmentFunc) error {
	sess, err := d.Dialer.Dial()
	if err != nil {
		return err
	}
	defer sess.Quit()

	// A failed attempt starts over from the segment's original offset, so
	// the part file is truncated rather than resumed.
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return retry.Permanent(fmt.Errorf("open %s: %v", part, err))
	}
	defer f.Close()

	rc, err := sess.RetrFrom(remotePath, uint64(seg.Start))
	if err != nil {
		return fmt.Errorf("RETR at offset %d: %v", seg.Start, err)
	}

	qr := &quotaReader{r: rc, remaining: seg.Length}
	start := time.Now()
	var received int64
	buf := make([]byte, d.blockSize())
	for {
		if d.stopRequested() {
			rc.Close()
			return retry.Permanent(ErrStopped)
		}
		n, rerr := qr.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				rc.Close()
				return retry.Permanent(fmt.Errorf("write %s: %v", part, werr))
			}
			received += int64(n)
			if received > *highWater {
				*highWater = received
			}
			if onSegment != nil {
				elapsed := time.Since(start).Seconds()
				var speed float64
				if elapsed > 0 {
					speed = float64(received) / elapsed
				}
				onSegment(seg.ID, *highWater, seg.Length, speed)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			rc.Close()
			return fmt.Errorf("read at offset %d: %v", seg.Start+received, rerr)
		}
	}

	// Quota met: close the data connection ourselves. The server is still
	// mid-transfer, so its abort chatter on close is expected here.
	rc.Close()

	if received != seg.Length {
		return fmt.Errorf("segment ended after %d of %d bytes", received, seg.Length)
	}
	return nil
}

// mergeParts concatenates the temp files in segment order into localPath and
// removes them. Removal failures are ignored; the merged file is complete.
func mergeParts(localPath string, segs []Segment) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %v", localPath, err)
	}

	for _, seg := range segs {
		in, err := os.Open(PartPath(localPath, seg.ID))
		if err != nil {
			out.Close()
			return fmt.Errorf("open part %d: %v", seg.ID, err)
		}
		_, cerr := io.Copy(out, in)
		in.Close()
		if cerr != nil {
			out.Close()
			return fmt.Errorf("merge part %d: %v", seg.ID, cerr)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %v", localPath, err)
	}

	for _, seg := range segs {
		os.Remove(PartPath(localPath, seg.ID))
	}
	return nil
}
