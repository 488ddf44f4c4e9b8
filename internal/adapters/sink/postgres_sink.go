package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/AegisPulse/internal/domain"
	"github.com/ghalamif/AegisPulse/internal/ports"
)

// PostgresSink stores collector records, one row per event, with the free-form part
// of the event kept as JSON in the info column.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) WriteBatch(records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (app_id, event_type, message, info, received_at) VALUES ")

	args := make([]any, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))

		var message sql.NullString
		if r.Message != nil {
			message = sql.NullString{String: *r.Message, Valid: true}
		}
		info := r.Info
		if len(info) == 0 {
			info = []byte("{}")
		}
		args = append(args,
			r.AppID,
			r.EventType,
			message,
			string(info),
			r.ReceivedAt,
		)
	}

	if _, err := p.db.Exec(b.String(), args...); err != nil {
		return fmt.Errorf("insert %d records into %s: %w", len(records), p.tableName, err)
	}
	return nil
}

var _ ports.Sink = (*PostgresSink)(nil)
