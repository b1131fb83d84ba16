package events

import "testing"

func TestFirstBroker(t *testing.T) {
	tests := []struct {
		brokers string
		want    string
	}{
		{"localhost:9092", "localhost:9092"},
		{"kafka-1:9092,kafka-2:9092,kafka-3:9092", "kafka-1:9092"},
		{"kafka-1:9092, kafka-2:9092", "kafka-1:9092"},
	}

	for _, tt := range tests {
		if got := firstBroker(tt.brokers); got != tt.want {
			t.Fatalf("firstBroker(%q) = %q, want %q", tt.brokers, got, tt.want)
		}
	}
}
