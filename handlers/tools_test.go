package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/Perceptus-Labs/sentinel-go-sdk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type toolFixture struct {
	dispatcher *ToolDispatcher
	risk       *RiskMonitor
	log        *EventLog
	requests   atomic.Int64
	server     *httptest.Server
}

func newToolFixture(t *testing.T, handler http.HandlerFunc) *toolFixture {
	f := &toolFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.log = NewEventLog(nil, "test", zap.NewNop())
	f.risk = NewRiskMonitor(f.log, zap.NewNop())
	f.dispatcher = NewToolDispatcher(utils.NewActuatorClient(f.server.URL), f.risk, f.log, zap.NewNop())
	return f
}

func ackHandler(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"` + message + `"}`))
	}
}

func entriesOfKind(log *EventLog, kind models.LogKind) []models.LogEntry {
	var out []models.LogEntry
	for _, e := range log.Snapshot() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestCall911ForcesDangerAndLogsAck(t *testing.T) {
	f := newToolFixture(t, ackHandler("emergency services dispatched"))

	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name:      models.ToolCall911,
		Arguments: map[string]interface{}{"reason": "intruder at the door"},
	})

	assert.Equal(t, models.RiskDanger, f.risk.Level())
	acks := entriesOfKind(f.log, models.LogKindTool)
	require.Len(t, acks, 1)
	assert.Equal(t, "emergency services dispatched", acks[0].Text)
}

func TestSendNotificationElevatesToWarningOnly(t *testing.T) {
	f := newToolFixture(t, ackHandler("notification queued"))

	f.risk.Commit(models.RiskDanger)
	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name: models.ToolSendNotification,
		Arguments: map[string]interface{}{
			"package_size":  "small",
			"delivery_time": "2026-08-30T14:00:00Z",
		},
	})

	// Already elevated past WARNING, must not downgrade.
	assert.Equal(t, models.RiskDanger, f.risk.Level())
	assert.Len(t, entriesOfKind(f.log, models.LogKindTool), 1)
}

func TestFailingActuatorIsIsolated(t *testing.T) {
	f := newToolFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "door jammed", http.StatusInternalServerError)
	})

	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name:      models.ToolDoor,
		Arguments: map[string]interface{}{"action": "OPEN"},
	})

	assert.Equal(t, models.RiskSafe, f.risk.Level(), "door has no risk side effect")
	assert.Len(t, entriesOfKind(f.log, models.LogKindError), 1)
	assert.Empty(t, entriesOfKind(f.log, models.LogKindTool))
}

func TestMissingArgumentIsLocalError(t *testing.T) {
	f := newToolFixture(t, ackHandler("unreachable"))

	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name:      models.ToolCall911,
		Arguments: map[string]interface{}{},
	})

	assert.Zero(t, f.requests.Load(), "validation failure must not reach the actuator")
	assert.Len(t, entriesOfKind(f.log, models.LogKindError), 1)
	// The risk side effect is applied only after validation passes.
	assert.Equal(t, models.RiskSafe, f.risk.Level())
}

func TestDoorRejectsUnknownAction(t *testing.T) {
	f := newToolFixture(t, ackHandler("unreachable"))

	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name:      models.ToolDoor,
		Arguments: map[string]interface{}{"action": "AJAR"},
	})

	assert.Zero(t, f.requests.Load())
	assert.Len(t, entriesOfKind(f.log, models.LogKindError), 1)
}

func TestUnknownToolIsNoOpErrorLog(t *testing.T) {
	f := newToolFixture(t, ackHandler("unreachable"))

	f.dispatcher.Dispatch(context.Background(), models.ToolInvocation{
		Name:      "selfDestruct",
		Arguments: map[string]interface{}{},
	})

	assert.Zero(t, f.requests.Load())
	errs := entriesOfKind(f.log, models.LogKindError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Text, "selfDestruct")
}
