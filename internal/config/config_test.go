package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DELIVERY_HOST_FAMILY", "DELIVERY_TIMEOUT", "WIDGET_INIT_TIMEOUT", "WIDGET_SEND_BUFFER", "KAFKA_BROKERS", "KAFKA_BROKER", "KAFKA_TOPICS", "JWT_SECRET", "JWT_PUBLIC_KEY", "DELIVERY_REGION"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Delivery.HostFamily != "delivery" || cfg.Delivery.Timeout != 10*time.Second || cfg.Delivery.Region != "NA" {
		t.Fatalf("unexpected delivery defaults: %#v", cfg.Delivery)
	}
	if cfg.Widget.InitTimeout != 5*time.Second || cfg.Widget.SendBuffer != 16 {
		t.Fatalf("unexpected widget defaults: %#v", cfg.Widget)
	}
	if len(cfg.Kafka.Brokers) != 0 || len(cfg.Kafka.Topics) != 1 || cfg.Kafka.Topics[0] != "cms.entries" {
		t.Fatalf("unexpected kafka defaults: %#v", cfg.Kafka)
	}
	if cfg.AuthEnabled() {
		t.Fatal("auth should be disabled without keys")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DELIVERY_HOST_FAMILY", "Management")
	t.Setenv("DELIVERY_TIMEOUT", "3")
	t.Setenv("WIDGET_INIT_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_BROKER", " k1:9092 , k2:9092 ,")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Delivery.HostFamily != "management" || cfg.Delivery.Timeout != 3*time.Second {
		t.Fatalf("unexpected delivery config: %#v", cfg.Delivery)
	}
	if cfg.Widget.InitTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected init timeout: %v", cfg.Widget.InitTimeout)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if !cfg.AuthEnabled() {
		t.Fatal("auth should be enabled with a secret")
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DELIVERY_HOST_FAMILY", "graphql")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown host family")
	}
	t.Setenv("DELIVERY_HOST_FAMILY", "")
	t.Setenv("WIDGET_SEND_BUFFER", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad buffer size")
	}
}
