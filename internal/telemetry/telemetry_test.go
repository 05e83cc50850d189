package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/s1natex/task-tracker/internal/config"
)

func TestSetup_None(t *testing.T) {
	p, err := Setup(context.Background(), config.TracingConfig{Exporter: "none"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := p.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("noop provider should not produce valid spans")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(), config.TracingConfig{Exporter: "stdout", ServiceName: "tasks-test"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := p.Tracer("test").Start(context.Background(), "create-task")
	span.End()

	// shutdown flushes the batcher
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "create-task") || !strings.Contains(out, "tasks-test") {
		t.Fatalf("span not exported: %s", out)
	}
}

func TestSetup_Unknown(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracingConfig{Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
