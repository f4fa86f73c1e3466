package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,bad, =x,tenant=market")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "market" {
		t.Fatalf("unexpected headers: %#v", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "k=v")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("MARKETFRONT_ENV", "staging")
	cfg := FromEnv(Config{ServiceName: "marketfront"})
	if cfg.Endpoint != "collector:4318" || !cfg.Insecure || cfg.Headers["k"] != "v" || cfg.Environment != "staging" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	explicit := FromEnv(Config{Endpoint: "other:4318"})
	if explicit.Endpoint != "other:4318" {
		t.Fatalf("explicit endpoint overwritten: %s", explicit.Endpoint)
	}
}

func TestInitWithoutExporters(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing service name error")
	}
	shutdown, err := Init(context.Background(), Config{ServiceName: "marketfront"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
