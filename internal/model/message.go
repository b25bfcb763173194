package model

import "time"

// RawMessage is one carrier text message as delivered by the message source.
type RawMessage struct {
	ExternalID string // provider-assigned, unique
	Sender     string
	Body       string
	Timestamp  time.Time
}

// CategoryMapping is a learned counterparty+direction -> category association.
type CategoryMapping struct {
	CounterpartyID string
	Direction      Direction
	CategoryID     string
	LastSeenAt     time.Time
}
