package main

import (
	"testing"
)

func TestSourceConfig(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{DefaultModelURL, DefaultModelURL, false},
		{"file:///opt/models/yunet.onnx", "file:///opt/models/yunet.onnx", false},
		{"https://example.com/models/", "", true},
		{"https://example.com/models/yunet", "", true},
		{"noslash", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg, err := sourceConfig(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("sourceConfig(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := cfg.URL(cfg.Accelerated); got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageAddr(t *testing.T) {
	tests := map[string]string{
		":8090":          "localhost:8090",
		"127.0.0.1:9000": "127.0.0.1:9000",
		"":               "",
	}
	for in, want := range tests {
		if got := pageAddr(in); got != want {
			t.Errorf("pageAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
