package ctxutil

import (
	"context"
	"testing"
)

func TestDefaultNil(t *testing.T) {
	var nilCtx context.Context
	if Default(nilCtx) == nil {
		t.Fatalf("Default(nil) returned nil")
	}
}

func TestTraceDataRoundTrip(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1", VideoID: "v1"})
	td := GetTraceData(ctx)
	if td == nil || td.TraceID != "t1" || td.VideoID != "v1" {
		t.Fatalf("unexpected trace data: %+v", td)
	}
	fields := LogFields(ctx)
	if len(fields) != 4 {
		t.Fatalf("expected 4 log fields, got %v", fields)
	}
	if GetTraceData(context.Background()) != nil {
		t.Fatalf("expected nil trace data on bare context")
	}
}
