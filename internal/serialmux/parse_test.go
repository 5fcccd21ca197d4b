package serialmux

import "testing"

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"plain done", "Done", ResponseDone},
		{"done with whitespace", "  Done \r", ResponseDone},
		{"skipped frame config", "Skipped", ResponseDone},
		{"done suffix", "Ignored: Done", ResponseDone},
		{"error with code", "Error: invalid usage of the CLI command", ResponseError},
		{"error numeric", "Error -1", ResponseError},
		{"unrecognised command", "'bogusCfg' is not recognized as a CLI command", ResponseError},
		{"sensor start failure", "sensorStart failed", ResponseError},
		{"percent banner", "% radar profile", ResponseBanner},
		{"demo banner", "mmWave Demo Output", ResponseBanner},
		{"command echo", "sensorStop", ResponseUnknown},
		{"empty line", "", ResponseUnknown},
		{"whitespace only", "   \t ", ResponseUnknown},
		{"prompt noise", ">", ResponseUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyResponse(tc.line); got != tc.want {
				t.Errorf("ClassifyResponse(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}
