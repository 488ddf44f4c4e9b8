package ports

import "github.com/ghalamif/AegisPulse/internal/domain"

type RecordQueue interface {
	Enqueue(r *domain.Record) bool
	DequeueBatch(max int) []*domain.Record
	Len() int
}
