package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// querier is the part of *pgxpool.Pool the source needs
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SupabaseSource reads orders from the Supabase Postgres table the
// storefront writes to. It never writes.
type SupabaseSource struct {
	db    querier
	table string
	loc   *time.Location
	log   *logger.Logger
}

func NewSupabaseSource(db querier, table string, loc *time.Location, log *logger.Logger) *SupabaseSource {
	if table == "" {
		table = "orders"
	}
	return &SupabaseSource{
		db:    db,
		table: table,
		loc:   loc,
		log:   log.WithComponent("supabase-source"),
	}
}

func (s *SupabaseSource) Name() string { return "supabase" }

func (s *SupabaseSource) FetchOrders(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, s.query(), window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		var (
			raw          rawOrder
			total        *int64
			deliveryDate *time.Time
			createdAt    time.Time
		)
		if err := rows.Scan(
			&raw.ID, &raw.OrderNumber, &raw.CustomerName, &raw.CustomerPhone,
			&raw.CustomerEmail, &raw.Address, &raw.Items, &total,
			&raw.Status, &raw.PaymentStatus, &raw.DeliveryMethod,
			&deliveryDate, &raw.Note, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}

		order := s.toOrder(raw, total, deliveryDate, createdAt)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}

	return orders, nil
}

func (s *SupabaseSource) toOrder(raw rawOrder, total *int64, deliveryDate *time.Time, createdAt time.Time) *models.Order {
	if total != nil {
		raw.Total = fmt.Sprint(*total)
	}

	order, err := raw.toOrder(models.OrderSourceSupabase, s.loc)
	if err != nil {
		s.log.Warn("Order row has unreadable fields",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
	order.DeliveryDate = deliveryDate
	order.CreatedAt = createdAt
	order.UpdatedAt = createdAt
	return order
}

func (s *SupabaseSource) query() string {
	table := pgx.Identifier{s.table}.Sanitize()
	return `
    SELECT id::text, coalesce(order_number, ''), coalesce(customer_name, ''),
           coalesce(customer_phone, ''), coalesce(customer_email, ''), coalesce(address, ''),
           coalesce(items::text, ''), total::bigint, coalesce(status, ''),
           coalesce(payment_status, ''), coalesce(delivery_method, ''),
           delivery_date::timestamptz, coalesce(note, ''), created_at
    FROM ` + table + `
    WHERE ($1::timestamptz IS NULL OR created_at >= $1)
      AND ($2::timestamptz IS NULL OR created_at <= $2)
    ORDER BY created_at ASC, id ASC
  `
}
