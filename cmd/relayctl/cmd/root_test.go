package cmd

import (
	"testing"
)

func TestPrintOutput(t *testing.T) {
	tests := []struct {
		name       string
		v          any
		outputJSON bool
		wantPlain  bool
	}{
		{
			name:       "plain mode calls the fallback printer",
			v:          "hello world",
			outputJSON: false,
			wantPlain:  true,
		},
		{
			name:       "json mode skips the fallback printer",
			v:          map[string]any{"key": "value", "number": 42},
			outputJSON: true,
			wantPlain:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origOutputJSON := outputJSON
			outputJSON = tt.outputJSON
			defer func() { outputJSON = origOutputJSON }()

			plainCalled := false
			printOutput(tt.v, func() { plainCalled = true })

			if plainCalled != tt.wantPlain {
				t.Errorf("printOutput() plain printer called = %v, want %v", plainCalled, tt.wantPlain)
			}
		})
	}
}
