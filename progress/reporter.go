package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Reporter renders transfer progress to a terminal. A single Reporter may be
// fed by multiple segment workers at once; all rendering is serialized behind
// a mutex so callers never need their own locking.
type Reporter struct {
	mu        sync.Mutex
	out       io.Writer
	startTime time.Time
	lastDraw  time.Time

	// per-segment state for segmented downloads
	received []int64
	total    int64
}

// NewReporter creates a Reporter writing to out. A nil out means os.Stdout.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

// Single returns a callback for a single-stream download.
func (r *Reporter) Single() Func {
	r.mu.Lock()
	r.startTime = time.Now()
	r.lastDraw = time.Time{}
	r.mu.Unlock()

	return func(s Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.throttle() {
			return
		}
		r.draw(s.Bytes, s.Total, s.SpeedBps, s.ETASeconds)
	}
}

// Segmented returns a callback for a segmented download with the given total
// size and segment count. The reporter sums the per-segment counters; the
// engine itself never aggregates across workers.
func (r *Reporter) Segmented(total int64, segments int) SegmentFunc {
	r.mu.Lock()
	r.startTime = time.Now()
	r.lastDraw = time.Time{}
	r.received = make([]int64, segments)
	r.total = total
	r.mu.Unlock()

	return func(id int, received, quota int64, speedBps float64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if id >= 0 && id < len(r.received) {
			r.received[id] = received
		}
		if !r.throttle() {
			return
		}
		var sum int64
		for _, n := range r.received {
			sum += n
		}
		elapsed := time.Since(r.startTime).Seconds()
		var speed float64
		if elapsed > 0 {
			speed = float64(sum) / elapsed
		}
		var eta float64
		if speed > 0 && r.total > 0 {
			eta = float64(r.total-sum) / speed
		}
		r.draw(sum, r.total, speed, eta)
	}
}

// Finish prints the final summary line. Call it once after the download
// settles, on success or failure.
func (r *Reporter) Finish(bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.startTime)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	avg := float64(bytes) / elapsed.Seconds()
	fmt.Fprintf(r.out, "\r%s transferred in %ds (avg %s/s)%s\n",
		FormatBytes(bytes), int(elapsed.Seconds()), FormatBytes(int64(avg)), pad(20))
}

// throttle reports whether enough time has passed to redraw.
// Caller must hold r.mu.
func (r *Reporter) throttle() bool {
	now := time.Now()
	if now.Sub(r.lastDraw) < 100*time.Millisecond {
		return false
	}
	r.lastDraw = now
	return true
}

// draw renders one progress line. Caller must hold r.mu.
func (r *Reporter) draw(bytes, total int64, speed, eta float64) {
	if total > 0 {
		pct := float64(bytes) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		fmt.Fprintf(r.out, "\r[%s] %5.1f%%  %s / %s  %s/s  ETA %s",
			bar(pct), pct, FormatBytes(bytes), FormatBytes(total),
			FormatBytes(int64(speed)), FormatETA(eta))
		return
	}
	fmt.Fprintf(r.out, "\r%s  %s/s", FormatBytes(bytes), FormatBytes(int64(speed)))
}

// bar builds the visual progress bar.
func bar(pct float64) string {
	const width = 40
	pos := int(float64(width) * pct / 100)
	b := make([]rune, width)
	for i := range b {
		switch {
		case i < pos:
			b[i] = '='
		case i == pos:
			b[i] = '>'
		default:
			b[i] = ' '
		}
	}
	return string(b)
}

func pad(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
