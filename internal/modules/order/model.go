// README: Order aggregate and status definitions.
package order

import (
	"time"

	"cargo/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusNew       Status = "new"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusInProcess Status = "in_process"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
	PaymentCard   PaymentMethod = "card"
)

type Type string

const (
	TypeRegular Type = "regular"
	TypeUrgent  Type = "urgent"
)

type Order struct {
	ID                types.ID      `json:"id"`
	CustomerName      string        `json:"customer_name"`
	CustomerPhone     string        `json:"customer_phone"`
	FromAddress       string        `json:"from_address"`
	ToAddress         string        `json:"to_address"`
	PickupTime        time.Time     `json:"pickup_time"`
	DurationHours     int           `json:"duration_hours"`
	Passengers        int           `json:"passengers"`
	Loaders           int           `json:"loaders"`
	SelectedVehicleID int           `json:"selected_vehicle_id"`
	VehicleName       string        `json:"vehicle_name"`
	DistanceKm        float64       `json:"distance_km"`
	RouteType         string        `json:"route_type"`
	TotalCost         types.Money   `json:"total_cost"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	OrderType         Type          `json:"order_type"`
	Status            Status        `json:"status"`
	StatusVersion     int           `json:"status_version"`
	Notes             string        `json:"notes,omitempty"`
	Forwarded         bool          `json:"forwarded"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	CreatedAt  time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Phone  string
	Limit  int
	Offset int
}

type Stats struct {
	TotalOrders         int            `json:"total_orders"`
	RecentOrders        int            `json:"recent_orders_24h"`
	TotalRevenue        int64          `json:"total_revenue"`
	RecentRevenue       int64          `json:"recent_revenue_24h"`
	StatusDistribution  map[string]int `json:"status_distribution"`
	PaymentDistribution map[string]int `json:"payment_distribution"`
}

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusNew:       {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:  {StatusInProcess, StatusCancelled},
	StatusInProcess: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusNew, StatusAccepted, StatusRejected, StatusInProcess, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch pm := PaymentMethod(s); pm {
	case "":
		return PaymentCash, true
	case PaymentCash, PaymentOnline, PaymentCard:
		return pm, true
	}
	return "", false
}
