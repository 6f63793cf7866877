package cli

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/blockgate/blockgate/internal/config"
	"github.com/blockgate/blockgate/internal/events"
	"github.com/blockgate/blockgate/internal/logging"
	"github.com/blockgate/blockgate/internal/protocol"
	"github.com/blockgate/blockgate/internal/transfer"
)

func newTestBridge(t *testing.T) (*transfer.Engine, *events.Bus) {
	t.Helper()
	bus := events.NewBus(10)
	eng := transfer.New(config.DefaultConfig(), bus, logging.NewLogger(io.Discard))
	return eng, bus
}

func TestDispatchUnknownName(t *testing.T) {
	eng, bus := newTestBridge(t)

	err := dispatch(eng, bus, envelope{Name: "no-such-message"})
	if err == nil {
		t.Fatal("dispatch accepted an unknown message name")
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	eng, bus := newTestBridge(t)

	env := envelope{Name: protocol.MsgCancelTransfer, Payload: json.RawMessage(`{`)}
	if err := dispatch(eng, bus, env); err == nil {
		t.Fatal("dispatch accepted a malformed payload")
	}
}

func TestDispatchQueueStatusPublishes(t *testing.T) {
	eng, bus := newTestBridge(t)
	msgs := bus.Subscribe(protocol.MsgQueueStatus)

	if err := dispatch(eng, bus, envelope{Name: protocol.MsgQueueStatus}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-msgs:
		st, ok := m.Payload.(transfer.QueueStatus)
		if !ok {
			t.Fatalf("payload type = %T", m.Payload)
		}
		if st.QueueSize != 0 || st.Processing != "" {
			t.Errorf("fresh engine status = %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no queue-status reply published")
	}
}

func TestDispatchPauseAndResume(t *testing.T) {
	eng, bus := newTestBridge(t)

	if err := dispatch(eng, bus, envelope{Name: protocol.MsgPauseTransfers}); err != nil {
		t.Fatal(err)
	}
	if st := eng.Status(); !st.Paused {
		t.Error("engine not paused after pause-transfers")
	}

	env := envelope{Name: protocol.MsgResumeTransfers, Payload: json.RawMessage(`{"share_id":"s1"}`)}
	if err := dispatch(eng, bus, env); err != nil {
		t.Fatal(err)
	}
	if st := eng.Status(); st.Paused {
		t.Error("engine still paused after resume-transfers")
	}
}

func TestDispatchHealthCheck(t *testing.T) {
	eng, bus := newTestBridge(t)
	msgs := bus.Subscribe(protocol.MsgHealthCheck)

	if err := dispatch(eng, bus, envelope{Name: protocol.MsgHealthCheck}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-msgs:
		h := m.Payload.(transfer.HealthStatus)
		if h.Status != "healthy" {
			t.Errorf("health status = %q", h.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no health-check reply published")
	}
}
