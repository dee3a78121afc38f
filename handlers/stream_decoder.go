package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"go.uber.org/zap"
)

// Fence markers delimiting structured records inside streamed text.
const (
	fenceStart = "```json"
	fenceEnd   = "```"
)

// StreamDecoder turns raw server messages into analysis records and tool
// invocations, in the order they appear. Text parts may fragment a fenced
// record across arbitrary message boundaries, so unconsumed residue is kept
// in a single partial buffer between passes. The buffer is owned exclusively
// by the decoder and only ever touched under the queue's single-consumer
// guarantee.
//
// A malformed fenced span is discarded outright rather than retried: waiting
// for more data cannot repair JSON that already failed to parse between two
// complete fences, and retrying would loop forever on truncated streams.
type StreamDecoder struct {
	partial string

	onRecord   func(models.AnalysisRecord)
	onToolCall func(models.ToolInvocation)
	log        *EventLog
	logger     *zap.Logger
}

func NewStreamDecoder(onRecord func(models.AnalysisRecord), onToolCall func(models.ToolInvocation), log *EventLog, logger *zap.Logger) *StreamDecoder {
	return &StreamDecoder{
		onRecord:   onRecord,
		onToolCall: onToolCall,
		log:        log,
		logger:     logger,
	}
}

// Reset discards any buffered residue. Called between runs.
func (d *StreamDecoder) Reset() {
	d.partial = ""
}

// ProcessMessage decodes one inbound message. Any failure while handling it
// is converted into an error feed entry, the partial buffer is cleared, and
// processing of later messages continues untouched.
func (d *StreamDecoder) ProcessMessage(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.partial = ""
			d.log.Append(models.LogKindError, fmt.Sprintf("Decode failure: %v", r))
		}
	}()

	var msg models.ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.partial = ""
		d.log.Append(models.LogKindError, fmt.Sprintf("Decode failure: %v", err))
		return
	}

	if msg.ToolCall != nil {
		for _, call := range msg.ToolCall.FunctionCalls {
			// A tool call terminates whatever text block was in flight.
			d.partial = ""
			d.onToolCall(models.ToolInvocation{Name: call.Name, Arguments: call.Args})
		}
	}

	if msg.ServerContent == nil {
		return
	}
	if msg.ServerContent.ModelTurn != nil {
		for _, part := range msg.ServerContent.ModelTurn.Parts {
			d.processPart(part)
		}
	}
	if msg.ServerContent.TurnComplete {
		d.logger.Debug("Turn complete")
	}
}

func (d *StreamDecoder) processPart(part models.Part) {
	switch part.Kind() {
	case models.PartFunctionCall:
		d.partial = ""
		d.onToolCall(models.ToolInvocation{
			Name:      part.FunctionCall.Name,
			Arguments: part.FunctionCall.Args,
		})

	case models.PartJSON:
		// A structured part and an in-flight text fence are mutually
		// exclusive within one turn.
		d.partial = ""
		d.emitRecord(string(part.JSON))

	case models.PartText:
		d.partial += part.Text
		d.drainFences()
	}
}

// drainFences extracts and dispatches every complete fenced span currently
// in the buffer. Consumed spans, their fences, and any noise preceding the
// start fence are removed; residue without a complete span is retained for
// the next pass.
func (d *StreamDecoder) drainFences() {
	for {
		start := strings.Index(d.partial, fenceStart)
		if start < 0 {
			return
		}
		rest := d.partial[start+len(fenceStart):]
		end := strings.Index(rest, fenceEnd)
		if end < 0 {
			return
		}

		body := rest[:end]
		d.partial = rest[end+len(fenceEnd):]
		d.emitRecord(body)
	}
}

func (d *StreamDecoder) emitRecord(body string) {
	var rec models.AnalysisRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &rec); err != nil {
		d.logger.Warn("Discarding malformed analysis block", zap.Error(err))
		d.log.Append(models.LogKindError, fmt.Sprintf("Malformed analysis block: %v", err))
		return
	}
	d.onRecord(rec)
}
