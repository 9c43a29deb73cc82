// Package events publishes invoice lifecycle notifications after a write commits.
package events

import (
	"context"
	"time"
)

type EventType string

const (
	InvoiceCreated EventType = "invoice.created"
	InvoiceUpdated EventType = "invoice.updated"
	InvoiceDeleted EventType = "invoice.deleted"
)

type InvoiceEvent struct {
	Type       EventType `json:"type"`
	InvoiceID  string    `json:"invoice_id"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events on a best-effort basis; a failed publish never
// undoes the write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event InvoiceEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, InvoiceEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
