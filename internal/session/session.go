// Package session runs a dispensing session: many customers drawing tickets
// from several dispensers that share one sequence, optionally queueing at a
// serving window afterwards.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/sawdustofmind/adv-sync/pkg/dispenser"
	"github.com/sawdustofmind/adv-sync/pkg/ordermutex"
	"github.com/sawdustofmind/adv-sync/pkg/sequence"
)

var (
	ErrInvalidOptions = errors.New("invalid session options")
	ErrDuplicate      = errors.New("turn number issued twice")
	ErrGap            = errors.New("turn numbers not contiguous")
)

type Options struct {
	// Workers is the number of concurrent customers.
	Workers int
	// Tickets is how many tickets each customer asks for.
	Tickets int
	// Dispensers is the number of dispensers sharing the sequence.
	Dispensers int
	// Script, if set, replaces the monotonic counter with a fixed list.
	Script []uint64
	// Serve passes every ticket through a serving window in turn order.
	Serve bool
	Log   logrus.FieldLogger
}

type Report struct {
	Issued       int
	Served       int
	Exhausted    bool
	PerDispenser map[string]int
}

func (o Options) validate() error {
	switch {
	case o.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidOptions)
	case o.Tickets <= 0:
		return fmt.Errorf("%w: tickets must be positive", ErrInvalidOptions)
	case o.Dispensers <= 0:
		return fmt.Errorf("%w: dispensers must be positive", ErrInvalidOptions)
	case o.Serve && len(o.Script) > 0:
		return fmt.Errorf("%w: the serving window needs contiguous turn numbers", ErrInvalidOptions)
	}
	return nil
}

// Run issues up to Workers*Tickets tickets and checks that no turn number was
// issued twice. With the monotonic counter it also checks the numbers form
// 0..N-1. A scripted session stops quietly once the script runs out.
func Run(ctx context.Context, opts Options) (Report, error) {
	if err := opts.validate(); err != nil {
		return Report{}, err
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var src sequence.Source = sequence.NewMonotonic()
	if len(opts.Script) > 0 {
		src = sequence.NewScripted(opts.Script...)
	}

	dispensers := make([]*dispenser.Dispenser, opts.Dispensers)
	for i := range dispensers {
		dispensers[i] = dispenser.New(src,
			dispenser.WithName(fmt.Sprintf("counter-%d", i)),
			dispenser.WithLogger(log))
	}

	var window ordermutex.OrderMutex
	if opts.Serve {
		window = ordermutex.New()
	}

	var (
		mu        sync.Mutex
		issued    = make([]uint64, 0, opts.Workers*opts.Tickets)
		perDisp   = make(map[string]int, opts.Dispensers)
		served    atomic.Int64
		exhausted atomic.Bool
	)

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		eg.Go(func() error {
			local := make([]uint64, 0, opts.Tickets)
			counts := make(map[string]int)
			defer func() {
				mu.Lock()
				issued = append(issued, local...)
				for name, n := range counts {
					perDisp[name] += n
				}
				mu.Unlock()
			}()

			for j := 0; j < opts.Tickets; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				d := dispensers[(w+j)%len(dispensers)]
				ticket, err := d.NextTicket()
				if errors.Is(err, sequence.ErrExhausted) {
					exhausted.Store(true)
					return nil
				}
				if err != nil {
					return err
				}
				local = append(local, ticket.TurnNumber())
				counts[d.Name()]++

				if window != nil {
					if err := window.LockContext(ctx, ticket); err != nil {
						return err
					}
					served.Inc()
					window.Unlock(ticket)
				}
			}
			return nil
		})
	}
	err := eg.Wait()

	report := Report{
		Issued:       len(issued),
		Served:       int(served.Load()),
		Exhausted:    exhausted.Load(),
		PerDispenser: perDisp,
	}
	if err != nil {
		return report, err
	}

	if err := Verify(issued, len(opts.Script) == 0); err != nil {
		log.WithError(err).Error("session produced invalid turn numbers")
		return report, err
	}

	log.WithFields(logrus.Fields{
		"issued":    report.Issued,
		"served":    report.Served,
		"exhausted": report.Exhausted,
	}).Info("session finished")
	return report, nil
}

// Verify checks that numbers holds no duplicates and, if contiguous is set,
// that it is exactly {0, ..., len(numbers)-1}. numbers is sorted in place.
func Verify(numbers []uint64, contiguous bool) error {
	slices.Sort(numbers)
	for i, n := range numbers {
		if i > 0 && numbers[i-1] == n {
			return fmt.Errorf("%w: %d", ErrDuplicate, n)
		}
		if contiguous && n != uint64(i) {
			return fmt.Errorf("%w: expected %d, found %d", ErrGap, i, n)
		}
	}
	return nil
}
