package mqtt

import "testing"

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/+/c", "a/b/c", true},
		{"a/+/c", "a/b/c/d", false},
		{"notecard/v1/firmware/request/+", "notecard/v1/firmware/request/dev:abc", true},
		{"notecard/v1/firmware/request/+", "notecard/v1/firmware/status/dev:abc", false},
		{"a/#", "a/b/c", true},
		{"a/#", "a/b", true},
		{"#", "anything/at/all", true},
		{"a/#/c", "a/b/c", false},
		{"+/+", "a/b", true},
		{"+/+", "a", false},
	}

	for _, tt := range tests {
		if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := &ClientConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("want error for empty broker URL")
	}

	cfg = &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
