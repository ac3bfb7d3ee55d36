// Package screen turns captured load-in frames into matched player names
package screen

// SpanName names the trace span of one capture.
const SpanName = "loadin_capture"
