package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"hrpay/internal/requestctx"
)

// Event is one audit row. Events name what happened to which entity; they
// never carry field values.
type Event struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	RequestID  string    `json:"requestId"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

type Service struct {
	DB *sql.DB
}

func New(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Record writes an event. Actor, request id and client ip come from ctx.
func (s *Service) Record(ctx context.Context, action, entityType, entityID string) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO audit_events (actor_id, action, entity_type, entity_id, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, requestctx.GetActor(ctx), action, entityType, entityID, requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx))
	return errors.Wrap(err, "record audit event")
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "count audit events")
	}
	return total, nil
}

// List returns events newest first. A non-positive limit returns all.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, actor_id, action, entity_type, entity_id, request_id, ip, created_at", filter)
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list audit events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit event")
		}
		out = append(out, evt)
	}
	return out, errors.Wrap(rows.Err(), "list audit events")
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	return query, args
}
