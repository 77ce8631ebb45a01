package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is used when no tracer name is configured.
const DefaultTracerName = "filestage"

// Span attribute keys.
const (
	AttrMode      = attribute.Key("filestage.mode")
	AttrChannel   = attribute.Key("filestage.channel")
	AttrFiles     = attribute.Key("filestage.files")
	AttrAccepted  = attribute.Key("filestage.accepted")
	AttrRejected  = attribute.Key("filestage.rejected")
	AttrEntries   = attribute.Key("filestage.entries")
	AttrEntryID   = attribute.Key("filestage.entry_id")
	AttrSessionID = attribute.Key("filestage.session_id")
)

// Tracer resolves a tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return otel.Tracer(name)
}

// EndSpan records err on span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
