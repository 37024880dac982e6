package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/pkg/enums"
)

// Trigger identifies what started an assignment run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerRefill    Trigger = "refill"
	TriggerScheduled Trigger = "scheduled"
)

// AutoAssignInput carries one invocation of the assignment engine.
type AutoAssignInput struct {
	MaxOrders         int
	DryRun            bool
	SpecificBrigadeID *uuid.UUID
	BoostCapacity     int
	Trigger           Trigger
}

// Assignment records one order/brigade pairing produced by a run.
type Assignment struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	BrigadeID   uuid.UUID         `json:"brigadeId"`
	BrigadeCode string            `json:"brigadeCode"`
	BrigadeType enums.BrigadeType `json:"brigadeType"`
}

// AutoAssignResult summarizes an assignment run. Skipped orders are an
// expected outcome, never an error.
type AutoAssignResult struct {
	Assigned    int          `json:"assigned"`
	Skipped     int          `json:"skipped"`
	TotalOrders int          `json:"totalOrders"`
	DryRun      bool         `json:"dryRun"`
	Assignments []Assignment `json:"assignments"`
}

// OrderAssignedEvent is the outbox payload for a single assignment.
type OrderAssignedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	OrderType      enums.OrderType   `json:"order_type"`
	Priority       int               `json:"priority"`
	BrigadeID      uuid.UUID         `json:"brigade_id"`
	BrigadeCode    string            `json:"brigade_code"`
	BrigadeType    enums.BrigadeType `json:"brigade_type"`
	Trigger        Trigger           `json:"trigger"`
	AssignmentDate time.Time         `json:"assignment_date"`
}
