package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for bootstrap and browser subsystem spans.
const (
	AttrRole        = "process.role"
	AttrProcessName = "process.name"
	AttrPhase       = "bootstrap.phase"
	AttrStep        = "bootstrap.step"
	AttrOptional    = "bootstrap.optional"
	AttrTrigger     = "bootstrap.trigger"
	AttrEngine      = "engine.name"
	AttrSubsystem   = "telemetry.subsystem"
	AttrPushScope   = "push.scope"
	AttrPushBytes   = "push.payload_bytes"
	AttrSessionID   = "session.id"
	AttrMemoryLevel = "memory.level"
)

// Span names.
const (
	SpanOnCreate     = "app.on_create"
	SpanTrimMemory   = "app.on_trim_memory"
	SpanWiring       = "bootstrap.wiring"
	SpanStepPrefix   = "bootstrap.step."
	SpanPushDeliver  = "push.deliver"
	SpanSessionStore = "session.persist"
)

// Role returns an attribute for the process role
func Role(role string) attribute.KeyValue {
	return attribute.String(AttrRole, role)
}

func ProcessName(name string) attribute.KeyValue {
	return attribute.String(AttrProcessName, name)
}

func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

// Step returns an attribute for a wiring step name
func Step(step string) attribute.KeyValue {
	return attribute.String(AttrStep, step)
}

func Optional(optional bool) attribute.KeyValue {
	return attribute.Bool(AttrOptional, optional)
}

// Trigger returns an attribute describing what scheduled wiring
// ("host_ready" or "delay").
func Trigger(trigger string) attribute.KeyValue {
	return attribute.String(AttrTrigger, trigger)
}

func Engine(name string) attribute.KeyValue {
	return attribute.String(AttrEngine, name)
}

func Subsystem(name string) attribute.KeyValue {
	return attribute.String(AttrSubsystem, name)
}

func PushScope(scope string) attribute.KeyValue {
	return attribute.String(AttrPushScope, scope)
}

func PushBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrPushBytes, n)
}

func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// MemoryLevel returns an attribute for a memory pressure level name
func MemoryLevel(level string) attribute.KeyValue {
	return attribute.String(AttrMemoryLevel, level)
}

// StartStepSpan starts a span for one wiring step.
func StartStepSpan(ctx context.Context, step string, optional bool, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Step(step),
		Optional(optional),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanStepPrefix+step, trace.WithAttributes(allAttrs...))
}

// EndSpan records err (if any) on span, marks the outcome and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
