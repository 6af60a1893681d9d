package ordermutex

// Ticket is anything carrying a turn number. dispenser.TurnTicket satisfies it.
type Ticket interface {
	TurnNumber() uint64
}
