package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// --- モック定義 ---

type mockSessionSweeper struct {
	deleteExpiredFn func(ctx context.Context) (int64, error)
	calls           int
}

func (m *mockSessionSweeper) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockSweepMetrics struct {
	swept []int64
}

func (m *mockSweepMetrics) RecordSessionsSwept(count int64) {
	m.swept = append(m.swept, count)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

func TestSweepJob_Run_DeletesExpiredSessions(t *testing.T) {
	sweeper := &mockSessionSweeper{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}
	metrics := &mockSweepMetrics{}
	job := NewSweepJob(sweeper, metrics, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sweeper.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", sweeper.calls)
	}
	if len(metrics.swept) != 1 || metrics.swept[0] != 42 {
		t.Errorf("swept = %v, want [42]", metrics.swept)
	}
}

func TestSweepJob_Run_NoExpiredSessions(t *testing.T) {
	// 削除対象ゼロは正常
	job := NewSweepJob(&mockSessionSweeper{}, nil, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSweepJob_Run_SweeperError(t *testing.T) {
	wantErr := errors.New("db down")
	sweeper := &mockSessionSweeper{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, wantErr
		},
	}
	metrics := &mockSweepMetrics{}
	job := NewSweepJob(sweeper, metrics, discardLogger())

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
	if len(metrics.swept) != 0 {
		t.Errorf("no metric should be recorded on failure, got %v", metrics.swept)
	}
}
