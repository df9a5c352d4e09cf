package ingest

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/fee"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/reconcile"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
)

func newTestService(opts Options) (*Service, *store.Memory) {
	st := store.NewMemory()
	rec := reconcile.New(st, fee.NewEngine(fee.DefaultRules()))
	return NewService(st, rec, opts), st
}

func TestService_IngestEndToEnd(t *testing.T) {
	svc, st := newTestService(Options{BatchSize: 10})

	data := buildCSV(37)
	id, err := svc.Start("inventory_3.15.2024.csv", "", strings.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ch, err := svc.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	for range ch {
	}

	res, err := svc.Result(id)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if res == nil {
		t.Fatal("Result() = nil after progress channel closed")
	}
	if res.TotalRows != 37 || res.Inserted != 37 {
		t.Errorf("rows/inserted = %d/%d, want 37/37", res.TotalRows, res.Inserted)
	}
	if res.Error != "" {
		t.Errorf("unexpected result error %q", res.Error)
	}

	p, err := svc.ProgressOf(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Phase != PhaseComplete || p.Percent != 100 {
		t.Errorf("final progress = %s/%d%%, want complete/100%%", p.Phase, p.Percent)
	}

	uploads, _ := st.ListFileUploads(context.Background())
	if len(uploads) != 1 || !uploads[0].Processed {
		t.Errorf("uploads = %+v, want one processed upload", uploads)
	}
}

// Poll progress and result from several goroutines while an ingestion runs.
// The snapshot accessors must be safe to call concurrently with the process
// goroutine, and the result must be visible once the channel closes.
func TestService_ConcurrentProgressReads(t *testing.T) {
	svc, _ := newTestService(Options{BatchSize: 5})

	data := buildCSV(200)
	id, err := svc.Start("inventory_3.15.2024.csv", "", strings.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ch, err := svc.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if p, err := svc.ProgressOf(id); err == nil && p.RowsProcessed > 200 {
					t.Errorf("rows processed %d exceeds total", p.RowsProcessed)
					return
				}
				if res, err := svc.Result(id); err == nil && res != nil && res.TotalRows != 200 {
					t.Errorf("result rows = %d, want 200", res.TotalRows)
					return
				}
			}
		}()
	}

	var last Progress
	for p := range ch {
		last = p
	}
	close(stop)
	wg.Wait()

	if last.Phase != PhaseComplete {
		t.Errorf("last progress phase = %s, want complete", last.Phase)
	}

	res, err := svc.Result(id)
	if err != nil || res == nil {
		t.Fatalf("Result() = (%v, %v) after completion", res, err)
	}
	if res.TotalRows != 200 {
		t.Errorf("result rows = %d, want 200", res.TotalRows)
	}
}

func TestService_CancelMidIngestion(t *testing.T) {
	svc, _ := newTestService(Options{BatchSize: 1})

	// A reader that trickles data keeps the ingestion alive long enough to
	// cancel it deterministically.
	pr, pw := newSlowPipe(buildCSV(1000), 64)
	defer pw.stopFeeding()

	id, err := svc.Start("inventory_3.15.2024.csv", "", pr, 1<<20)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ch, err := svc.Subscribe(id)
	if err != nil {
		t.Fatal(err)
	}
	// Wait until at least one batch has been reconciled before cancelling.
	for p := range ch {
		if p.Phase == PhaseReconciling && p.RowsProcessed > 0 {
			break
		}
	}
	if err := svc.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		res, err := svc.Result(id)
		if err != nil {
			t.Fatal(err)
		}
		if res != nil {
			if res.Error == "" {
				t.Error("cancelled ingestion reported no error")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("ingestion did not finish after cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// slowPipe feeds its payload in small chunks with a delay between reads.
type slowPipe struct {
	mu      sync.Mutex
	data    string
	off     int
	chunk   int
	stopped bool
}

func newSlowPipe(data string, chunk int) (*slowPipe, *slowPipe) {
	p := &slowPipe{data: data, chunk: chunk}
	return p, p
}

func (p *slowPipe) Read(b []byte) (int, error) {
	time.Sleep(2 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.off >= len(p.data) {
		return 0, io.EOF
	}
	end := p.off + p.chunk
	if end > len(p.data) {
		end = len(p.data)
	}
	n := copy(b, p.data[p.off:end])
	p.off += n
	return n, nil
}

func (p *slowPipe) stopFeeding() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
