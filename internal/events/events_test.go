package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("sovereign.sessions.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	pub := NewNATSPublisher(nc, "sovereign.sessions")
	err = pub.Publish(context.Background(), Event{
		Type:      TypeAnomaly,
		ContextID: "ctx-1",
		Subtask:   "git_init",
		Output:    "Git Err",
	})
	require.NoError(t, err)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "sovereign.sessions.ctx-1.anomaly", msg.Subject)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, TypeAnomaly, got.Type)
	assert.Equal(t, "Git Err", got.Output)
	assert.False(t, got.Timestamp.IsZero())
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewNATSPublisher(nc, "p").Publish(ctx, Event{Type: TypeStarted, ContextID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNATSPublisher_Subject(t *testing.T) {
	pub := NewNATSPublisher(nil, "sovereign.sessions")

	tests := []struct {
		id   string
		want string
	}{
		{"abc", "sovereign.sessions.abc.completed"},
		{"a.b c", "sovereign.sessions.a_b_c.completed"},
		{"x>*", "sovereign.sessions.x__.completed"},
		{"", "sovereign.sessions._.completed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pub.Subject(Event{Type: TypeCompleted, ContextID: tt.id}))
	}
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
