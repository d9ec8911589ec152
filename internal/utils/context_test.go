package utils

import (
	"context"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	ctx, id := WithRequestID(context.Background())
	if id == "" {
		t.Fatal("WithRequestID() returned empty id")
	}
	if got := RequestID(ctx); got != id {
		t.Errorf("RequestID() = %q, want %q", got, id)
	}
	again, id2 := WithRequestID(ctx)
	if id2 != id {
		t.Errorf("WithRequestID() regenerated id: %q vs %q", id2, id)
	}
	if again != ctx {
		t.Error("WithRequestID() replaced ctx that already carries an id")
	}
}

func TestRequestID_Empty(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID() = %q, want empty", got)
	}
}
