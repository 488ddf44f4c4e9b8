package ports

import "github.com/ghalamif/AegisPulse/internal/domain"

type Sink interface {
	WriteBatch(records []*domain.Record) error
	Name() string
}
