package dispenser

import "fmt"

// TurnTicket is an issued turn number. The zero value is not a valid ticket;
// tickets only come from Dispenser.NextTicket.
type TurnTicket struct {
	turnNumber uint64
}

func (t TurnTicket) TurnNumber() uint64 { return t.turnNumber }

func (t TurnTicket) String() string {
	return fmt.Sprintf("Ticket(%d)", t.turnNumber)
}
