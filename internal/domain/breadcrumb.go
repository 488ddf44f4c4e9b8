package domain

// BreadcrumbType classifies a breadcrumb by the capture source that produced it.
type BreadcrumbType string

const (
	BreadcrumbRequestLegacy BreadcrumbType = "request-legacy"
	BreadcrumbRequestModern BreadcrumbType = "request-modern"
	BreadcrumbClick         BreadcrumbType = "click"
	BreadcrumbRoute         BreadcrumbType = "route"
)

// Level is the severity attached to a breadcrumb.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Breadcrumb is a lightweight record of recent activity kept as context for later failures.
type Breadcrumb struct {
	Type      BreadcrumbType `json:"type"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Level     Level          `json:"level"`
}

// Clone returns a copy whose Data map can be mutated without touching b.
func (b Breadcrumb) Clone() Breadcrumb {
	if b.Data != nil {
		data := make(map[string]any, len(b.Data))
		for k, v := range b.Data {
			data[k] = v
		}
		b.Data = data
	}
	return b
}
