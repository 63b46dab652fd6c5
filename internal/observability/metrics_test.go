package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsIdempotent(t *testing.T) {
	// A second registration must not panic on duplicate collectors.
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	RecordChannelConnection()
	RecordChannelRequest(1024)
	RecordChannelFramingError()
	RecordConversion(50*time.Millisecond, true)
	RecordConversion(0, false)
	RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
}
