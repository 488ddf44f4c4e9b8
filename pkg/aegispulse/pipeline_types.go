package aegispulse

import (
	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// PipelineRecord is the data structure that flows through the collector queue→sink pipeline.
// It mirrors internal/domain.Record but is exported so custom adapters can reference it.
type PipelineRecord = domain.Record

// RecordQueue is the bounded, in-memory queue between the collector handler and the sink.
type RecordQueue = ports.RecordQueue

// Spool parks batches the sink refused until the next start.
type Spool = ports.Spool

// Sink consumes batches of records and persists them to any downstream system.
type Sink = ports.Sink

// Observability emits metrics/logs about delivery, dedup, recording and ingestion.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// Capabilities exposes the delivery primitives of the host (beacon, stream, pixel).
type Capabilities = ports.Capabilities

type (
	BeaconSender = ports.BeaconSender
	StreamSender = ports.StreamSender
	PixelSender  = ports.PixelSender
)

// FrameSource feeds replay frames to the recording buffer.
type FrameSource = ports.FrameSource

// TimingProvider exposes navigation and paint timings of the host.
type TimingProvider = ports.TimingProvider

// PageInspector snapshots what the host currently displays.
type PageInspector = ports.PageInspector

type (
	Event            = domain.Event
	Frame            = domain.Frame
	Breadcrumb       = domain.Breadcrumb
	BreadcrumbType   = domain.BreadcrumbType
	Level            = domain.Level
	Capability       = domain.Capability
	ErrorInfo        = domain.ErrorInfo
	NavigationTiming = domain.NavigationTiming
	PageSnapshot     = domain.PageSnapshot
)

const (
	BreadcrumbRequestLegacy = domain.BreadcrumbRequestLegacy
	BreadcrumbRequestModern = domain.BreadcrumbRequestModern
	BreadcrumbClick         = domain.BreadcrumbClick
	BreadcrumbRoute         = domain.BreadcrumbRoute

	LevelInfo    = domain.LevelInfo
	LevelWarning = domain.LevelWarning
	LevelError   = domain.LevelError
)
