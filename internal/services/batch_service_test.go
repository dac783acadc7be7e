package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-qc/internal/models"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

type fakeProcessor struct {
	mu       sync.Mutex
	seen     []string
	fail     map[string]error
	inFlight int32
	maxSeen  int32
}

func (p *fakeProcessor) ProcessFile(ctx context.Context, path string) (*models.QCResult, error) {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		old := atomic.LoadInt32(&p.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&p.maxSeen, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.seen = append(p.seen, filepath.Base(path))
	p.mu.Unlock()

	if err := p.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	return &models.QCResult{
		Run:   models.QCRun{ID: "run-" + filepath.Base(path)},
		After: models.NewRecordTable(make([]models.DailyRecord, 3)),
	}, nil
}

func writeInputs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("2020-01-01 1 2 3 4\n"), 0o644))
	}
	return dir
}

func TestBatchService_ProcessDirectory(t *testing.T) {
	dir := writeInputs(t, "a.txt", "b.txt", "c.txt", "d.txt", "notes.md")
	processor := &fakeProcessor{fail: map[string]error{"c.txt": errors.New("rejected input")}}
	collector := metrics.NewCollector("test")
	svc := NewBatchService(processor, logging.NewNopLogger(), collector)

	result, err := svc.ProcessDirectory(context.Background(), dir, "*.txt", 2)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalFiles)
	assert.Equal(t, 3, result.SucceededFiles)
	assert.Equal(t, 1, result.FailedFiles)
	assert.Equal(t, 9, result.TotalRecords)
	assert.Equal(t, []string{"run-a.txt", "run-b.txt", "run-d.txt"}, result.RunIDs)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "c.txt: rejected input")

	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt", "d.txt"}, processor.seen)
	assert.LessOrEqual(t, atomic.LoadInt32(&processor.maxSeen), int32(2))

	assert.Equal(t, 3.0, testutil.ToFloat64(collector.BatchFilesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.BatchFilesTotal.WithLabelValues("failure")))
}

func TestBatchService_NoFiles(t *testing.T) {
	svc := NewBatchService(&fakeProcessor{}, logging.NewNopLogger(), metrics.NewCollector("test"))

	_, err := svc.ProcessDirectory(context.Background(), t.TempDir(), "*.txt", 4)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestBatchService_Cancelled(t *testing.T) {
	dir := writeInputs(t, "a.txt", "b.txt")
	svc := NewBatchService(&fakeProcessor{}, logging.NewNopLogger(), metrics.NewCollector("test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessDirectory(ctx, dir, "*.txt", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
