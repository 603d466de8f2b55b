package main

import (
	"testing"

	"github.com/cbegin/metrosynth-go/internal/voice"
)

func TestTriggerKind(t *testing.T) {
	tests := []struct {
		name    string
		want    voice.Kind
		wantErr bool
	}{
		{"kick", voice.KindKick, false},
		{"saw", voice.KindPad, false},
		{"pulse", voice.KindPulse, false},
		{"note", 0, true},
		{"cowbell", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := triggerKind(tc.name)
			if (err != nil) != tc.wantErr {
				t.Fatalf("triggerKind(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Fatalf("triggerKind(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}
