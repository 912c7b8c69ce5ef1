package transfer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSegmentedDownloadAndMerge(t *testing.T) {
	data := patternData(40_000)
	srv := &fakeServer{data: data}
	d := testDownloader(srv)
	local := filepath.Join(t.TempDir(), "out.bin")

	req := Request{RemotePath: "out.bin", LocalPath: local, ExpectedSize: 40_000, Segments: 4}
	if err := d.Segmented(req, nil); err != nil {
		t.Fatalf("segmented: %v", err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("merged bytes differ")
	}

	// every worker opened its own connection at its own offset
	offs := srv.retrOffsets()
	seen := map[int64]bool{}
	for _, o := range offs {
		seen[o] = true
	}
	for _, want := range []int64{0, 10_000, 20_000, 30_000} {
		if !seen[want] {
			t.Errorf("no RETR at offset %d (got %v)", want, offs)
		}
	}

	// temp files are cleaned up after the merge
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(PartPath(local, i)); !os.IsNotExist(err) {
			t.Errorf("part %d left behind", i)
		}
	}
}

func TestSegmentWorkerRestartsFromScratch(t *testing.T) {
	data := patternData(40_000)
	srv := &fakeServer{
		data: data,
		// segment 1's first stream dies after 1,000 of its 10,000 bytes
		failAt: map[int64][]int64{10_000: {1000}},
	}
	d := testDownloader(srv)
	local := filepath.Join(t.TempDir(), "out.bin")

	var mu sync.Mutex
	reported := map[int][]int64{}
	onSegment := func(id int, received, quota int64, speed float64) {
		mu.Lock()
		reported[id] = append(reported[id], received)
		mu.Unlock()
	}

	req := Request{RemotePath: "out.bin", LocalPath: local, ExpectedSize: 40_000, Segments: 4}
	if err := d.Segmented(req, onSegment); err != nil {
		t.Fatalf("segmented: %v", err)
	}

	got, _ := os.ReadFile(local)
	if !bytes.Equal(got, data) {
		t.Fatal("merged bytes differ after a segment retry")
	}

	// the failed worker re-opened its range at the original offset
	var attemptsAt10k int
	for _, o := range srv.retrOffsets() {
		if o == 10_000 {
			attemptsAt10k++
		}
	}
	if attemptsAt10k != 2 {
		t.Errorf("expected 2 RETRs at 10000, got %d", attemptsAt10k)
	}

	// reported progress never moves backwards, even across the retry
	for id, values := range reported {
		for i := 1; i < len(values); i++ {
			if values[i] < values[i-1] {
				t.Fatalf("segment %d progress went backwards: %v", id, values)
			}
		}
		if len(values) > 0 && values[len(values)-1] != 10_000 {
			t.Errorf("segment %d final progress %d", id, values[len(values)-1])
		}
	}
}

func TestSegmentedPartialFailure(t *testing.T) {
	data := patternData(40_000)
	srv := &fakeServer{
		data: data,
		// segment 2 fails on every attempt
		failAt: map[int64][]int64{20_000: {0, 0, 0}},
	}
	d := testDownloader(srv)
	local := filepath.Join(t.TempDir(), "out.bin")

	req := Request{RemotePath: "out.bin", LocalPath: local, ExpectedSize: 40_000, Segments: 4}
	err := d.Segmented(req, nil)
	if err == nil {
		t.Fatal("expected failure")
	}

	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %T: %v", err, err)
	}
	if len(pf.Failed) != 1 || pf.Failed[0] != 2 {
		t.Errorf("expected segment 2 to be named, got %v", pf.Failed)
	}

	// nothing was merged
	if _, serr := os.Stat(local); !os.IsNotExist(serr) {
		t.Error("destination must not exist after a partial failure")
	}

	// succeeded segments keep their temp files
	for _, id := range []int{0, 1, 3} {
		info, serr := os.Stat(PartPath(local, id))
		if serr != nil {
			t.Errorf("part %d missing: %v", id, serr)
			continue
		}
		if info.Size() != 10_000 {
			t.Errorf("part %d: %d bytes", id, info.Size())
		}
	}
}

func TestSegmentedNeedsKnownSize(t *testing.T) {
	srv := &fakeServer{data: patternData(100)}
	d := testDownloader(srv)

	err := d.Segmented(Request{RemotePath: "x", LocalPath: filepath.Join(t.TempDir(), "x"), Segments: 4}, nil)
	var terr *TransferError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransferError, got %v", err)
	}
}

func TestDownloadPicksStrategy(t *testing.T) {
	data := patternData(8000)
	srv := &fakeServer{data: data}
	d := testDownloader(srv)
	local := filepath.Join(t.TempDir(), "out.bin")

	// Segments below 2 routes through the single-stream path
	req := Request{RemotePath: "out.bin", LocalPath: local, ExpectedSize: 8000, Segments: 1}
	if err := d.Download(req, nil, nil); err != nil {
		t.Fatalf("download: %v", err)
	}
	if offs := srv.retrOffsets(); len(offs) != 1 || offs[0] != 0 {
		t.Errorf("expected one whole-file RETR, got %v", offs)
	}
}
