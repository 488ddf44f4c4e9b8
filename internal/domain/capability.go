package domain

// Capability names a capture source that can be silenced through configuration.
type Capability string

const (
	CapabilityError              Capability = "error"
	CapabilityUnhandledRejection Capability = "unhandledrejection"
	CapabilityXHR                Capability = "xhr"
	CapabilityFetch              Capability = "fetch"
	CapabilityClick              Capability = "click"
	CapabilityHashChange         Capability = "hashchange"
	CapabilityHistory            Capability = "history"
	CapabilityPerformance        Capability = "performance"
	CapabilityWhiteScreen        Capability = "whitescreen"
	CapabilityRecordScreen       Capability = "recordscreen"
)

// Capabilities lists every capture source in setup order.
var Capabilities = []Capability{
	CapabilityError,
	CapabilityUnhandledRejection,
	CapabilityXHR,
	CapabilityFetch,
	CapabilityClick,
	CapabilityHashChange,
	CapabilityHistory,
	CapabilityPerformance,
	CapabilityWhiteScreen,
	CapabilityRecordScreen,
}
