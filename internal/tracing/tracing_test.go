package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestGetVersion(t *testing.T) {
	t.Setenv("SERVICE_VERSION", "")
	if got := getVersion(); got != "dev" {
		t.Errorf("getVersion() = %q, want dev", got)
	}

	t.Setenv("SERVICE_VERSION", "1.2.3")
	if got := getVersion(); got != "1.2.3" {
		t.Errorf("getVersion() = %q, want 1.2.3", got)
	}
}

func TestGetInstanceID(t *testing.T) {
	t.Setenv("HOSTNAME", "")
	t.Setenv("POD_NAME", "")
	if got := getInstanceID(); got != "unknown" {
		t.Errorf("getInstanceID() = %q, want unknown", got)
	}

	t.Setenv("POD_NAME", "worker-0")
	if got := getInstanceID(); got != "worker-0" {
		t.Errorf("getInstanceID() = %q, want worker-0", got)
	}

	t.Setenv("HOSTNAME", "host-1")
	if got := getInstanceID(); got != "host-1" {
		t.Errorf("getInstanceID() = %q, want host-1 (hostname wins)", got)
	}
}

func TestGetOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{name: "default", env: "", want: "tempo:4318"},
		{name: "plain host port", env: "collector:4318", want: "collector:4318"},
		{name: "http scheme stripped", env: "http://collector:4318", want: "collector:4318"},
		{name: "https scheme stripped", env: "https://collector:4318", want: "collector:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.env)
			if got := getOTLPEndpoint(); got != tt.want {
				t.Errorf("getOTLPEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartSpanTraceID(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prevProvider)

	tp := trace.NewTracerProvider(trace.WithSampler(trace.AlwaysSample()))
	otel.SetTracerProvider(tp)

	ctx, span := StartSpan(context.Background(), "test.dispatch")
	defer span.End()

	if GetTraceID(ctx) == "" {
		t.Error("GetTraceID() = empty, want the active span's trace ID")
	}
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("GetTraceID() = %q, want empty without an active span", got)
	}
}
