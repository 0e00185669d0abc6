// README: Order service: server-side price recalculation, persistence, forwarding and status transitions.
package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"cargo/internal/modules/pricing"
	"cargo/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	MarkForwarded(ctx context.Context, id types.ID) error
	AppendEvent(ctx context.Context, e *Event) error
	Stats(ctx context.Context, since time.Time) (Stats, error)
}

type Quoter interface {
	Complete(ctx context.Context, req pricing.CompleteRequest) (pricing.CompleteResult, error)
}

type Service struct {
	store     Repository
	quoter    Quoter
	forwarder Forwarder
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Repository, quoter Quoter, forwarder Forwarder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if forwarder == nil {
		forwarder = NewLogForwarder(logger)
	}
	return &Service{store: store, quoter: quoter, forwarder: forwarder, logger: logger, now: time.Now}
}

type CreateCommand struct {
	CustomerName      string
	CustomerPhone     string
	FromAddress       string
	ToAddress         string
	PickupTime        time.Time
	DurationHours     int
	Passengers        int
	Loaders           int
	Vehicle           pricing.VehicleRequest
	SelectedVehicleID int
	Urgent            bool
	PaymentMethod     string
	ExtraServices     []string
	ExtraServicesCost float64
	Notes             string
}

type UpdateStatusCommand struct {
	OrderID   types.ID
	To        Status
	ActorType string
}

// Create prices the order from scratch, stores it and hands it to the forwarder.
// Forwarding failures leave the order stored with Forwarded=false.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if strings.TrimSpace(cmd.CustomerName) == "" || strings.TrimSpace(cmd.CustomerPhone) == "" ||
		strings.TrimSpace(cmd.FromAddress) == "" || strings.TrimSpace(cmd.ToAddress) == "" ||
		cmd.PickupTime.IsZero() || cmd.SelectedVehicleID <= 0 {
		return nil, ErrBadRequest
	}
	payment, ok := ParsePaymentMethod(cmd.PaymentMethod)
	if !ok {
		return nil, eris.Wrapf(ErrBadRequest, "payment method %q", cmd.PaymentMethod)
	}

	vehicleReq := cmd.Vehicle
	vehicleReq.Passengers, vehicleReq.Loaders = cmd.Passengers, cmd.Loaders
	res, err := s.quoter.Complete(ctx, pricing.CompleteRequest{
		Route:             pricing.RouteRequest{From: cmd.FromAddress, To: cmd.ToAddress},
		DurationHours:     cmd.DurationHours,
		Urgent:            cmd.Urgent,
		Vehicle:           vehicleReq,
		SelectedVehicleID: cmd.SelectedVehicleID,
		ExtraServices:     cmd.ExtraServices,
		ExtraServicesCost: max(cmd.ExtraServicesCost, 0),
	})
	if err != nil {
		return nil, err
	}

	orderType := TypeRegular
	if cmd.Urgent {
		orderType = TypeUrgent
	}
	now := s.now().UTC()
	o := &Order{
		ID:                types.ID(uuid.NewString()),
		CustomerName:      strings.TrimSpace(cmd.CustomerName),
		CustomerPhone:     strings.TrimSpace(cmd.CustomerPhone),
		FromAddress:       cmd.FromAddress,
		ToAddress:         cmd.ToAddress,
		PickupTime:        cmd.PickupTime,
		DurationHours:     cmd.DurationHours,
		Passengers:        cmd.Passengers,
		Loaders:           cmd.Loaders,
		SelectedVehicleID: res.Vehicle.ID,
		VehicleName:       res.Vehicle.Name,
		DistanceKm:        res.Quote.Route.TotalKm,
		RouteType:         string(res.Quote.Route.RouteType),
		TotalCost:         types.RUB(res.Breakdown.Total),
		PaymentMethod:     payment,
		OrderType:         orderType,
		Status:            StatusNew,
		Notes:             cmd.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, eris.Wrap(err, "store order")
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusNew,
		ActorType:  "customer",
		CreatedAt:  now,
	})

	if err := s.forwarder.Forward(ctx, o); err != nil {
		s.logger.Error("order forwarding failed", zap.String("order_id", string(o.ID)), zap.Error(err))
		return o, nil
	}
	if err := s.store.MarkForwarded(ctx, o.ID); err != nil {
		s.logger.Warn("mark forwarded failed", zap.String("order_id", string(o.ID)), zap.Error(err))
		return o, nil
	}
	o.Forwarded = true
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" {
		if _, ok := ParseStatus(string(f.Status)); !ok {
			return nil, eris.Wrapf(ErrBadRequest, "status %q", f.Status)
		}
	}
	return s.store.List(ctx, NormalizeFilter(f))
}

// NormalizeFilter applies the default page size and clamps paging values.
func NormalizeFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)
	f.Offset = max(f.Offset, 0)
	return f
}

func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*Order, error) {
	if cmd.OrderID == "" {
		return nil, ErrBadRequest
	}
	if _, ok := ParseStatus(string(cmd.To)); !ok {
		return nil, eris.Wrapf(ErrBadRequest, "status %q", cmd.To)
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.To, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	actor := cmd.ActorType
	if actor == "" {
		actor = "admin"
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   cmd.To,
		ActorType:  actor,
		CreatedAt:  s.now().UTC(),
	})
	s.logger.Info("order status changed",
		zap.String("order_id", string(o.ID)),
		zap.String("from", string(o.Status)),
		zap.String("to", string(cmd.To)),
	)
	o.Status = cmd.To
	o.StatusVersion++
	return o, nil
}

// Stats summarizes all orders and those created in the last 24 hours.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx, s.now().Add(-24*time.Hour))
}
