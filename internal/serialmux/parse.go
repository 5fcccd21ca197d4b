package serialmux

import "strings"

const (
	ResponseDone    = "done"
	ResponseError   = "error"
	ResponseBanner  = "banner"
	ResponseUnknown = "unknown"
)

// ClassifyResponse inspects one line from the sensor's config UART and
// returns a simple response type token. The classification is intentionally
// conservative: the CLI echoes each command before acknowledging it, and the
// boot banner interleaves freely, so anything unrecognized passes through as
// unknown rather than failing the configuration sequence.
func ClassifyResponse(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "Done" || trimmed == "Skipped" || strings.HasSuffix(trimmed, "Done"):
		return ResponseDone
	case strings.HasPrefix(trimmed, "Error"), strings.Contains(trimmed, "not recognized"),
		strings.Contains(trimmed, "sensorStart failed"):
		return ResponseError
	case strings.HasPrefix(trimmed, "%"), strings.Contains(trimmed, "mmWave"):
		return ResponseBanner
	}
	return ResponseUnknown
}
