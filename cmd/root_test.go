package cmd

import "testing"

func TestNewNormalizerFallsBackPerList(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		input  string
		expect string
	}{
		{name: "no overrides", config: &Config{}, input: "Red Onion 1kg pack", expect: "onion"},
		{
			name:   "stop words overridden, units kept",
			config: &Config{Normalization: &NormalizationConfig{StopWords: []string{"fresh"}}},
			input:  "Fresh Red Onion 1kg pack",
			expect: "red onion pack",
		},
		{
			name:   "explicitly empty stop words",
			config: &Config{Normalization: &NormalizationConfig{StopWords: []string{}}},
			input:  "Extra Virgin Olive Oil 1l",
			expect: "extra virgin olive oil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newNormalizer(tt.config).Normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
