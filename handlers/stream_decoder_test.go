package handlers

import (
	"encoding/json"
	"testing"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type decoderFixture struct {
	decoder *StreamDecoder
	log     *EventLog
	records []models.AnalysisRecord
	calls   []models.ToolInvocation
}

func newDecoderFixture() *decoderFixture {
	f := &decoderFixture{}
	f.log = NewEventLog(nil, "test", zap.NewNop())
	f.decoder = NewStreamDecoder(
		func(rec models.AnalysisRecord) { f.records = append(f.records, rec) },
		func(inv models.ToolInvocation) { f.calls = append(f.calls, inv) },
		f.log, zap.NewNop())
	return f
}

func textMessage(t *testing.T, text string) []byte {
	t.Helper()
	msg := models.ServerMessage{
		ServerContent: &models.ServerContent{
			ModelTurn: &models.ModelTurn{Parts: []models.Part{{Text: text}}},
		},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestDecoderDrainsMultipleFencedBlocks(t *testing.T) {
	f := newDecoderFixture()

	f.decoder.ProcessMessage(textMessage(t,
		"noise```json{\"transcription\":\"one\",\"riskLevel\":\"SAFE\"}```tail"+
			"```json{\"transcription\":\"two\",\"riskLevel\":\"WARNING\"}```"))

	require.Len(t, f.records, 2)
	assert.Equal(t, "one", f.records[0].Transcription)
	assert.Equal(t, "two", f.records[1].Transcription)
	assert.Empty(t, f.decoder.partial, "no complete span may survive a pass")
}

func TestDecoderReassemblesFragmentedBlock(t *testing.T) {
	f := newDecoderFixture()

	f.decoder.ProcessMessage(textMessage(t, "```json{\"thought\":\"watching\",\"risk"))
	assert.Empty(t, f.records, "incomplete fence must not produce a record")
	assert.NotEmpty(t, f.decoder.partial)

	f.decoder.ProcessMessage(textMessage(t, "Level\":\"DANGER\"}```"))
	require.Len(t, f.records, 1)
	assert.Equal(t, "watching", f.records[0].Thought)
	assert.Equal(t, "DANGER", f.records[0].RiskLevel)
	assert.Empty(t, f.decoder.partial)
}

func TestDecoderDiscardsMalformedSpan(t *testing.T) {
	f := newDecoderFixture()

	f.decoder.ProcessMessage(textMessage(t, "```jsonNOTJSON```"))

	assert.Empty(t, f.records)
	assert.Empty(t, f.decoder.partial, "malformed span must not be retained for retry")
	entries := f.log.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogKindError, entries[0].Kind)
}

func TestDecoderRecordIsProducedOnce(t *testing.T) {
	f := newDecoderFixture()

	raw := textMessage(t, "```json{\"transcription\":\"once\"}```")
	f.decoder.ProcessMessage(raw)
	f.decoder.ProcessMessage(textMessage(t, "no fences here"))

	assert.Len(t, f.records, 1)
}

func TestDecoderStructuredPartClearsBuffer(t *testing.T) {
	f := newDecoderFixture()

	// Leave a dangling fence in the buffer.
	f.decoder.ProcessMessage(textMessage(t, "```json{\"thought\":\"partial"))
	require.NotEmpty(t, f.decoder.partial)

	msg := models.ServerMessage{
		ServerContent: &models.ServerContent{
			ModelTurn: &models.ModelTurn{Parts: []models.Part{
				{JSON: json.RawMessage(`{"transcription":"direct"}`)},
			}},
		},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	f.decoder.ProcessMessage(raw)

	require.Len(t, f.records, 1)
	assert.Equal(t, "direct", f.records[0].Transcription)
	assert.Empty(t, f.decoder.partial)
}

func TestDecoderToolCallClearsBufferAndDispatches(t *testing.T) {
	f := newDecoderFixture()

	f.decoder.ProcessMessage(textMessage(t, "```json{\"thought\":\"partial"))

	msg := models.ServerMessage{
		ToolCall: &models.ToolCallPayload{
			FunctionCalls: []models.FunctionCall{{
				Name: models.ToolDoor,
				Args: map[string]interface{}{"action": "OPEN"},
			}},
		},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	f.decoder.ProcessMessage(raw)

	require.Len(t, f.calls, 1)
	assert.Equal(t, models.ToolDoor, f.calls[0].Name)
	assert.Empty(t, f.decoder.partial)
}

func TestDecoderFunctionCallPartDispatches(t *testing.T) {
	f := newDecoderFixture()

	msg := models.ServerMessage{
		ServerContent: &models.ServerContent{
			ModelTurn: &models.ModelTurn{Parts: []models.Part{
				{FunctionCall: &models.FunctionCall{
					Name: models.ToolCall911,
					Args: map[string]interface{}{"reason": "intruder"},
				}},
			}},
		},
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	f.decoder.ProcessMessage(raw)

	require.Len(t, f.calls, 1)
	assert.Equal(t, models.ToolCall911, f.calls[0].Name)
}

func TestDecoderBadMessageIsIsolated(t *testing.T) {
	f := newDecoderFixture()

	f.decoder.ProcessMessage([]byte("not json at all"))
	entries := f.log.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogKindError, entries[0].Kind)

	// Subsequent messages keep flowing.
	f.decoder.ProcessMessage(textMessage(t, "```json{\"transcription\":\"after\"}```"))
	require.Len(t, f.records, 1)
	assert.Equal(t, "after", f.records[0].Transcription)
}

func TestDecoderEmptyMessageIsNoOp(t *testing.T) {
	f := newDecoderFixture()

	raw, err := json.Marshal(models.ServerMessage{})
	require.NoError(t, err)
	f.decoder.ProcessMessage(raw)

	assert.Empty(t, f.records)
	assert.Empty(t, f.calls)
	assert.Zero(t, f.log.Len())
}
