// Package middleware decorates a ports.TranscriptSink with at-rest
// protection: PII masking and AES-GCM encryption of turn contents.
package middleware

import "github.com/aretw0/persona/pkg/ports"

// Middleware allows wrapping a TranscriptSink to add behavior.
type Middleware func(ports.TranscriptSink) ports.TranscriptSink

// Chain applies mws so that the first one sees calls first.
func Chain(sink ports.TranscriptSink, mws ...Middleware) ports.TranscriptSink {
	for i := len(mws) - 1; i >= 0; i-- {
		sink = mws[i](sink)
	}
	return sink
}
