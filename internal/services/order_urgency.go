package services

import (
	"sort"
	"time"

	"blockify-backend/internal/models"
)

const (
	ConfirmationWindow = models.ConfirmationWindow
	UrgencyThreshold   = models.UrgencyThreshold
)

// Urgency is derived on read and never stored. Remaining values are zero once expired.
type Urgency struct {
	Deadline     time.Time `json:"deadline"`
	TotalMinutes int64     `json:"totalMinutes"`
	Hours        int64     `json:"hours"`
	Minutes      int64     `json:"minutes"`
	IsExpired    bool      `json:"isExpired"`
	IsUrgent     bool      `json:"isUrgent"`
}

// CalculateUrgency measures the confirmation window against now.
func CalculateUrgency(orderedAt, now time.Time) Urgency {
	deadline := orderedAt.Add(ConfirmationWindow)
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return Urgency{Deadline: deadline, IsExpired: true}
	}

	total := int64(remaining / time.Minute)
	return Urgency{
		Deadline:     deadline,
		TotalMinutes: total,
		Hours:        total / 60,
		Minutes:      total % 60,
		IsUrgent:     remaining <= UrgencyThreshold,
	}
}

// OrderView pairs an order with its urgency. Urgency is only set for Processing orders.
type OrderView struct {
	Order   models.Order
	Urgency *Urgency
}

func newOrderView(order models.Order, now time.Time) OrderView {
	view := OrderView{Order: order}
	if order.Status == models.OrderStatusProcessing {
		u := CalculateUrgency(order.OrderedAt, now)
		view.Urgency = &u
	}
	return view
}

// RankOrders moves Processing orders to the front, urgent ones first and then by
// nearest deadline. Everything else keeps its relative order.
func RankOrders(views []OrderView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Urgency, views[j].Urgency
		if (a != nil) != (b != nil) {
			return a != nil
		}
		if a == nil {
			return false
		}
		if a.IsUrgent != b.IsUrgent {
			return a.IsUrgent
		}
		return a.Deadline.Before(b.Deadline)
	})
}
