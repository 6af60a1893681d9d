package telemetry

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel comes online on the onlineAfter-th Connect; 0 means never.
type fakeChannel struct {
	t           *testing.T
	onlineAfter int
	connectErr  error
	reply       string

	online      bool
	connects    int
	disconnects int
	sent        []string
}

func (c *fakeChannel) Online() bool { return c.online }

func (c *fakeChannel) Connect(connection string) error {
	if err := ValidateConnection(connection); err != nil {
		return err
	}
	c.connects++
	if c.connectErr != nil {
		return c.connectErr
	}
	c.online = c.onlineAfter > 0 && c.connects >= c.onlineAfter
	return nil
}

func (c *fakeChannel) Disconnect() {
	c.disconnects++
	c.online = false
}

func (c *fakeChannel) Send(message string) error {
	if !c.online {
		c.t.Fatal("send on an offline channel")
	}
	if err := ValidateMessage(message); err != nil {
		return err
	}
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeChannel) Receive() (string, error) {
	if !c.online {
		c.t.Fatal("receive on an offline channel")
	}
	return c.reply, nil
}

func quiet() Option {
	log, _ := logtest.NewNullLogger()
	return WithLogger(log)
}

func TestCheckTransmissionSendsDiagnosticMessage(t *testing.T) {
	ch := &fakeChannel{t: t, onlineAfter: 1, reply: "LAST TX rate................ 100 MBPS"}
	d := NewDiagnostics(ch, quiet())

	require.NoError(t, d.CheckTransmission(context.Background()))
	assert.Equal(t, []string{DiagnosticMessage}, ch.sent)
	assert.Equal(t, "LAST TX rate................ 100 MBPS", d.Info())
	assert.Equal(t, 1, ch.disconnects)
	assert.Equal(t, 1, ch.connects)
}

func TestCheckTransmissionRetriesConnect(t *testing.T) {
	ch := &fakeChannel{t: t, onlineAfter: 3, reply: "ok"}
	d := NewDiagnostics(ch, quiet())

	require.NoError(t, d.CheckTransmission(context.Background()))
	assert.Equal(t, 3, ch.connects)
	assert.Equal(t, "ok", d.Info())
}

func TestCheckTransmissionFailsWhenOffline(t *testing.T) {
	ch := &fakeChannel{t: t}
	log, hook := logtest.NewNullLogger()
	d := NewDiagnostics(ch, WithLogger(log))

	err := d.CheckTransmission(context.Background())
	require.ErrorIs(t, err, ErrUnableToConnect)
	assert.Equal(t, DefaultMaxAttempts, ch.connects)
	assert.Empty(t, ch.sent)
	assert.Empty(t, d.Info())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "telemetry channel offline", hook.LastEntry().Message)
}

func TestCheckTransmissionRetriesConnectErrors(t *testing.T) {
	ch := &fakeChannel{t: t, connectErr: errors.New("line busy")}
	d := NewDiagnostics(ch, quiet(), WithMaxAttempts(5))

	err := d.CheckTransmission(context.Background())
	require.ErrorIs(t, err, ErrUnableToConnect)
	assert.Equal(t, 5, ch.connects)
}

func TestCheckTransmissionClearsPreviousInfo(t *testing.T) {
	ch := &fakeChannel{t: t, onlineAfter: 1, reply: "first"}
	d := NewDiagnostics(ch, quiet())
	require.NoError(t, d.CheckTransmission(context.Background()))
	require.Equal(t, "first", d.Info())

	ch.onlineAfter = 0
	ch.connects = 0
	require.Error(t, d.CheckTransmission(context.Background()))
	assert.Empty(t, d.Info())
}

func TestInvalidConnectionStringIsNotRetried(t *testing.T) {
	ch := &fakeChannel{t: t, onlineAfter: 1}
	d := NewDiagnostics(ch, quiet(), WithConnection(""))

	err := d.CheckTransmission(context.Background())
	require.ErrorIs(t, err, ErrInvalidConnectionString)
	assert.Zero(t, ch.connects)
}

func TestValidation(t *testing.T) {
	assert.ErrorIs(t, ValidateConnection(""), ErrInvalidConnectionString)
	assert.NoError(t, ValidateConnection(DiagnosticChannelConnectionString))
	assert.ErrorIs(t, ValidateMessage(""), ErrInvalidMessage)
	assert.NoError(t, ValidateMessage(DiagnosticMessage))
}
