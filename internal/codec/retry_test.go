package codec

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// flakyService fails with the queued errors before answering.
type flakyService struct {
	errs  []error
	calls int
}

func (f *flakyService) Predict(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"predictions": []any{0.5}})
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()
	unavailable := status.Error(codes.Unavailable, "down")

	tests := []struct {
		name     string
		err      error
		attempts int
		want     bool
	}{
		{"nil error", nil, 1, false},
		{"transient first attempt", unavailable, 1, true},
		{"transient second attempt", unavailable, 2, true},
		{"transient after max", unavailable, 3, false},
		{"exhausted", status.Error(codes.ResourceExhausted, "busy"), 1, true},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), 1, false},
		{"plain error", errors.New("boom"), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempts); got != tt.want {
				t.Errorf("ShouldRetry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, Backoff: 10 * time.Millisecond}
	want := []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for n, w := range want {
		if got := p.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
	if NoRetry().Delay(1) != 0 {
		t.Error("NoRetry should not wait")
	}
}

func TestPredict_RetriesTransient(t *testing.T) {
	svc := &flakyService{errs: []error{
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	}}
	c := NewClientWithService(svc).WithRetry(RetryPolicy{MaxRetries: 2})

	preds, err := c.Predict(context.Background(), &metric.Dataset{Labels: []float64{1}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if svc.calls != 3 {
		t.Errorf("calls = %d, want 3", svc.calls)
	}
	if len(preds) != 1 || preds[0] != 0.5 {
		t.Errorf("preds = %v", preds)
	}
}

func TestPredict_GivesUp(t *testing.T) {
	svc := &flakyService{errs: []error{
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	}}
	c := NewClientWithService(svc).WithRetry(RetryPolicy{MaxRetries: 2})

	_, err := c.Predict(context.Background(), &metric.Dataset{Labels: []float64{1}})
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Fatalf("err = %v, want Unavailable", err)
	}
	if svc.calls != 3 {
		t.Errorf("calls = %d, want 3", svc.calls)
	}
}

func TestPredict_NoRetryOnPermanent(t *testing.T) {
	svc := &flakyService{errs: []error{status.Error(codes.InvalidArgument, "bad")}}
	c := NewClientWithService(svc)

	if _, err := c.Predict(context.Background(), &metric.Dataset{Labels: []float64{1}}); err == nil {
		t.Fatal("expected error")
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1", svc.calls)
	}
}

func TestPredict_CancelledDuringBackoff(t *testing.T) {
	svc := &flakyService{errs: []error{status.Error(codes.Unavailable, "down")}}
	c := NewClientWithService(svc).WithRetry(RetryPolicy{MaxRetries: 2, Backoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Predict(ctx, &metric.Dataset{Labels: []float64{1}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1", svc.calls)
	}
}
