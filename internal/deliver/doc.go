// Package deliver sends a finished artifact to the configured primary sink
// and mirrors it to an optional secondary sink.
//
// Only the primary transfer decides success. A primary rejection caused by
// payload size surfaces as services.ErrTooLarge so the pipeline can run one
// fit pass and retry; every other primary failure is services.ErrDelivery.
// Secondary failures are logged and otherwise ignored.
//
// Transfer timeouts scale with payload size (see Budget).
package deliver
