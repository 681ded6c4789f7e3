package export

import (
	"context"
	"fmt"
	"log"
	"time"
)

type retrySink struct {
	sink       Sink
	maxRetries int
	delay      time.Duration
}

// WithRetry wraps sink so a failed export is attempted up to maxRetries
// times in total, sleeping delay between attempts. Context cancellation
// stops the retries.
func WithRetry(sink Sink, maxRetries int, delay time.Duration) Sink {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &retrySink{sink: sink, maxRetries: maxRetries, delay: delay}
}

func (r *retrySink) Export(ctx context.Context, data []byte, filename string) error {
	var err error

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err = r.sink.Export(ctx, data, filename); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		log.Printf("⚠️  Export of %s failed, retrying (%d/%d): %v", filename, attempt, r.maxRetries, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}

	return fmt.Errorf("export failed after retries: %w", err)
}
