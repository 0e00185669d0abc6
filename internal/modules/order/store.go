// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo/internal/types"
)

const orderColumns = `id, customer_name, customer_phone, from_address, to_address, pickup_time,
	duration_hours, passengers, loaders, selected_vehicle_id, vehicle_name, distance_km, route_type,
	total_cost, currency, payment_method, order_type, status, status_version, notes, forwarded,
	created_at, updated_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23
		)`,
		string(o.ID), o.CustomerName, o.CustomerPhone, o.FromAddress, o.ToAddress, o.PickupTime,
		o.DurationHours, o.Passengers, o.Loaders, o.SelectedVehicleID, o.VehicleName, o.DistanceKm, o.RouteType,
		o.TotalCost.Amount, o.TotalCost.Currency, string(o.PaymentMethod), string(o.OrderType),
		string(o.Status), o.StatusVersion, o.Notes, o.Forwarded,
		o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.Phone != "" {
		args = append(args, f.Phone)
		where = append(where, "customer_phone = $"+strconv.Itoa(len(args)))
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkForwarded(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET forwarded = TRUE, updated_at = NOW() WHERE id = $1`, string(id))
	return err
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, created_at
		) VALUES ($1, $2, $3, $4, $5)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		e.CreatedAt,
	)
	return err
}

func (s *Store) Stats(ctx context.Context, since time.Time) (Stats, error) {
	st := Stats{StatusDistribution: map[string]int{}, PaymentDistribution: map[string]int{}}
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_cost), 0)::BIGINT,
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COALESCE(SUM(total_cost) FILTER (WHERE created_at >= $1), 0)::BIGINT
		FROM orders`, since,
	).Scan(&st.TotalOrders, &st.TotalRevenue, &st.RecentOrders, &st.RecentRevenue)
	if err != nil {
		return Stats{}, err
	}
	for column, dist := range map[string]map[string]int{
		"status":         st.StatusDistribution,
		"payment_method": st.PaymentDistribution,
	} {
		if err := s.countBy(ctx, column, dist); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// countBy groups orders by a fixed, trusted column name.
func (s *Store) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.Query(ctx, `SELECT `+column+`, COUNT(*) FROM orders GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var id, payment, orderType, status string
	err := row.Scan(
		&id, &o.CustomerName, &o.CustomerPhone, &o.FromAddress, &o.ToAddress, &o.PickupTime,
		&o.DurationHours, &o.Passengers, &o.Loaders, &o.SelectedVehicleID, &o.VehicleName, &o.DistanceKm, &o.RouteType,
		&o.TotalCost.Amount, &o.TotalCost.Currency, &payment, &orderType, &status, &o.StatusVersion, &o.Notes, &o.Forwarded,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.ID = types.ID(id)
	o.PaymentMethod = PaymentMethod(payment)
	o.OrderType = Type(orderType)
	o.Status = Status(status)
	return &o, nil
}
