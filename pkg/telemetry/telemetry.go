// Package telemetry runs transmission diagnostics over a telemetry Channel.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const (
	DiagnosticChannelConnectionString = "*111#"
	DiagnosticMessage                 = "AT#UD"

	DefaultMaxAttempts = 3
)

var (
	ErrUnableToConnect         = errors.New("unable to connect")
	ErrInvalidConnectionString = errors.New("invalid telemetry server connection string")
	ErrInvalidMessage          = errors.New("invalid message")
)

// Channel is a connection to a telemetry server.
type Channel interface {
	Online() bool
	Connect(connection string) error
	Disconnect()
	Send(message string) error
	Receive() (string, error)
}

// ValidateConnection rejects connection strings no Channel can dial.
func ValidateConnection(connection string) error {
	if connection == "" {
		return ErrInvalidConnectionString
	}
	return nil
}

// ValidateMessage rejects messages no Channel can send.
func ValidateMessage(message string) error {
	if message == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Diagnostics checks that a Channel can reach the diagnostic endpoint and
// keeps the last status report it received.
type Diagnostics struct {
	ch          Channel
	connection  string
	maxAttempts uint
	backOff     backoff.BackOff
	log         logrus.FieldLogger

	info string
}

type Option func(*Diagnostics)

// WithMaxAttempts bounds the number of Connect calls per check. 0 means no bound.
func WithMaxAttempts(n uint) Option {
	return func(d *Diagnostics) { d.maxAttempts = n }
}

// WithBackOff sets the pause between connection attempts. The default is no pause.
func WithBackOff(b backoff.BackOff) Option {
	return func(d *Diagnostics) { d.backOff = b }
}

func WithConnection(connection string) Option {
	return func(d *Diagnostics) { d.connection = connection }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Diagnostics) { d.log = log }
}

func NewDiagnostics(ch Channel, opts ...Option) *Diagnostics {
	d := &Diagnostics{
		ch:          ch,
		connection:  DiagnosticChannelConnectionString,
		maxAttempts: DefaultMaxAttempts,
		backOff:     &backoff.ZeroBackOff{},
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Info returns the status report of the last successful check.
func (d *Diagnostics) Info() string { return d.info }

// CheckTransmission reconnects the channel, sends the diagnostic message and
// stores the reply. If the channel is still offline after the allowed
// attempts it returns ErrUnableToConnect without sending anything.
func (d *Diagnostics) CheckTransmission(ctx context.Context) error {
	d.info = ""

	if err := ValidateConnection(d.connection); err != nil {
		return err
	}

	d.ch.Disconnect()

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if d.ch.Online() {
			return struct{}{}, nil
		}
		attempt++
		if err := d.ch.Connect(d.connection); err != nil {
			if errors.Is(err, ErrInvalidConnectionString) {
				return struct{}{}, backoff.Permanent(err)
			}
			d.log.WithError(err).WithField("attempt", attempt).Debug("connect failed")
			return struct{}{}, err
		}
		if !d.ch.Online() {
			d.log.WithField("attempt", attempt).Debug("still offline")
			return struct{}{}, ErrUnableToConnect
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(d.backOff), backoff.WithMaxTries(d.maxAttempts))
	if err != nil {
		if errors.Is(err, ErrInvalidConnectionString) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		d.log.WithError(err).WithField("attempts", attempt).Warn("telemetry channel offline")
		return fmt.Errorf("%w after %d attempts", ErrUnableToConnect, attempt)
	}

	if err := d.ch.Send(DiagnosticMessage); err != nil {
		return fmt.Errorf("send diagnostic message: %w", err)
	}
	info, err := d.ch.Receive()
	if err != nil {
		return fmt.Errorf("receive diagnostic info: %w", err)
	}
	d.info = info
	return nil
}
