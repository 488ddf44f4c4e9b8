package ports

import "github.com/ghalamif/AegisPulse/internal/domain"

// FrameSource is the low-level replay capture primitive feeding the recording buffer.
type FrameSource interface {
	Start(emit func(domain.Frame)) error
	Stop() error
}
