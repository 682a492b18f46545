package main

import (
	"log/slog"

	"github.com/AiXpand/tsclient-sub000/client"
	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/model"
)

// watchEvents logs client events until the channel closes. Instances of a node
// get traffic loggers when the node comes online.
func watchEvents(c *client.Client, logger *slog.Logger) {
	watched := make(map[*model.PluginInstance]bool)

	for ev := range c.Events() {
		switch ev.Kind {
		case client.EventNodeOnline:
			logger.Info("Node online", "node", ev.Node, "fleet", c.InFleet(ev.Node))
			attachLoggers(c, ev.Node, watched, logger)
		case client.EventFleetRejected:
			logger.Warn("Engine command refused", "node", ev.Node, "action", string(ev.Action), "error", ev.Err)
		case client.EventTransactionResolved:
			logger.Info("Transaction resolved",
				"node", ev.Node,
				"action", string(ev.Action),
				"request_id", ev.Result.RequestID,
				"notifications", len(ev.Result.Notifications))
		case client.EventTransactionRejected:
			logger.Warn("Transaction rejected",
				"node", ev.Node,
				"action", string(ev.Action),
				"request_id", ev.Result.RequestID,
				"reason", ev.Result.Message)
		case client.EventUnmatchedPayload:
			logger.Debug("Payload for untracked instance", "path", ev.Payload.Path.String())
		}
	}
}

func attachLoggers(c *client.Client, node string, watched map[*model.PluginInstance]bool, logger *slog.Logger) {
	pipelines := c.Pipelines(node)
	var fresh []*model.PluginInstance
	_ = c.Do(func() error {
		for _, p := range pipelines {
			for _, inst := range p.Instances() {
				if !watched[inst] {
					watched[inst] = true
					fresh = append(fresh, inst)
				}
			}
		}
		return nil
	})

	for _, inst := range fresh {
		inst.OnNotification(func(i *model.PluginInstance, n *message.Notification) {
			logger.Info("Instance notification",
				"path", i.Path().String(),
				"type", string(n.NotificationType),
				"code", n.Code.String(),
				"message", n.Message)
		})
		inst.OnPayload(func(i *model.PluginInstance, pl *message.Payload) {
			logger.Debug("Instance payload", "path", i.Path().String(), "fields", len(pl.Data))
		})
	}
}
