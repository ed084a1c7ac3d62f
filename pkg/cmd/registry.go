package cmd

import (
	"log/slog"

	"github.com/dripline/dripline/pkg/channels/linkedin"
	"github.com/dripline/dripline/pkg/channels/manual"
	"github.com/dripline/dripline/pkg/dispatch"
	"github.com/dripline/dripline/pkg/executors/action"
	"github.com/dripline/dripline/pkg/executors/condition"
	"github.com/dripline/dripline/pkg/executors/delay"
	"github.com/dripline/dripline/pkg/executors/trigger"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/protocol"
	"github.com/dripline/dripline/pkg/registry"
)

// ChannelConfig carries the channel proxy settings shared by the binaries.
type ChannelConfig struct {
	LinkedInBaseURL string
	LinkedInAPIKey  string
}

// NewRegistry wires every executor and channel adapter. An empty LinkedIn
// base URL leaves connection polling disabled; waits then resolve from
// ingested events and timeouts alone.
func NewRegistry(logger *slog.Logger, p persistence.Persistence, channels ChannelConfig) *registry.Registry {
	reg := registry.NewRegistry(logger)

	var checker protocol.ConnectionChecker

	if channels.LinkedInBaseURL != "" {
		client := linkedin.NewClient(channels.LinkedInBaseURL, channels.LinkedInAPIKey, logger)
		connect := linkedin.NewConnectAdapter(client)
		checker = connect

		reg.RegisterAdapter(linkedin.NewMessageAdapter(client))
		reg.RegisterAdapter(connect)
		reg.RegisterAdapter(linkedin.NewReactAdapter(client))
		reg.RegisterAdapter(linkedin.NewCommentAdapter(client))
	}

	reg.RegisterAdapter(manual.NewTaskAdapter())

	eventLog := p.EventLogRepository()
	dispatcher := dispatch.NewDispatcher(reg, logger)

	reg.RegisterExecutor(trigger.NewExecutor())
	reg.RegisterExecutor(action.NewExecutor(dispatcher, eventLog, logger))
	reg.RegisterExecutor(delay.NewExecutor(eventLog, logger))
	reg.RegisterExecutor(condition.NewExecutor(eventLog, checker, logger))

	return reg
}
