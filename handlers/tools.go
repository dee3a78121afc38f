package handlers

import (
	"context"
	"fmt"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/Perceptus-Labs/sentinel-go-sdk/utils"
	"go.uber.org/zap"
)

// ToolDispatcher executes model-issued tool invocations against the external
// actuator endpoints. Failures stay local: a missing argument, an unknown
// tool, or a failing actuator each produce a single error entry in the feed
// and nothing else. Risk side effects applied before the actuator call are
// deliberately not rolled back on failure.
type ToolDispatcher struct {
	actuators *utils.ActuatorClient
	risk      *RiskMonitor
	log       *EventLog
	logger    *zap.Logger
}

func NewToolDispatcher(actuators *utils.ActuatorClient, risk *RiskMonitor, log *EventLog, logger *zap.Logger) *ToolDispatcher {
	return &ToolDispatcher{
		actuators: actuators,
		risk:      risk,
		log:       log,
		logger:    logger,
	}
}

// Dispatch validates and executes one invocation. It never returns an error;
// every failure mode ends in the operator feed.
func (d *ToolDispatcher) Dispatch(ctx context.Context, inv models.ToolInvocation) {
	d.logger.Info("Dispatching tool", zap.String("tool", inv.Name))

	switch inv.Name {
	case models.ToolCall911:
		if !d.requireArgs(inv, "reason") {
			return
		}
		// An emergency call always means danger, ahead of whatever risk
		// field the next analysis carries.
		d.risk.Commit(models.RiskDanger)
		d.invoke(ctx, inv, "/call911")

	case models.ToolSendNotification:
		if !d.requireArgs(inv, "package_size", "delivery_time") {
			return
		}
		d.risk.Elevate(models.RiskWarning)
		d.invoke(ctx, inv, "/sendNotification")

	case models.ToolDoor:
		if !d.requireArgs(inv, "action") {
			return
		}
		action, _ := inv.Arguments["action"].(string)
		if action != "OPEN" && action != "CLOSE" {
			d.log.Append(models.LogKindError, fmt.Sprintf("Tool %s: invalid action %q", inv.Name, action))
			return
		}
		d.invoke(ctx, inv, "/door")

	default:
		d.log.Append(models.LogKindError, "Unknown tool: "+inv.Name)
	}
}

// requireArgs checks that every named argument is a present, non-empty
// string. Absence is a local error, never forwarded to the remote side.
func (d *ToolDispatcher) requireArgs(inv models.ToolInvocation, names ...string) bool {
	for _, name := range names {
		value, ok := inv.Arguments[name].(string)
		if !ok || value == "" {
			d.log.Append(models.LogKindError, fmt.Sprintf("Tool %s: missing required argument %q", inv.Name, name))
			return false
		}
	}
	return true
}

func (d *ToolDispatcher) invoke(ctx context.Context, inv models.ToolInvocation, path string) {
	message, err := d.actuators.Invoke(ctx, path, inv.Arguments)
	if err != nil {
		d.logger.Error("Tool execution failed", zap.String("tool", inv.Name), zap.Error(err))
		d.log.Append(models.LogKindError, fmt.Sprintf("Tool %s failed: %v", inv.Name, err))
		return
	}
	d.log.Append(models.LogKindTool, message)
}
