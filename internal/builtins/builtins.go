// Package builtins registers the native modules every environment starts
// with. Each one is an ordinary resource whose body declares a factory, so
// bundles reach them through require like any other module.
package builtins

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/commonenv/internal/events"
	"github.com/kingrea/commonenv/internal/jsonrpc"
	"github.com/kingrea/commonenv/internal/logging"
	"github.com/kingrea/commonenv/internal/module"
	"github.com/kingrea/commonenv/internal/thrower"
)

// Module ids.
const (
	Queue            = "queue"
	Thrower          = "thrower"
	Broadcaster      = "broadcaster"
	NamespacedEvents = "namespaced_events"
	Logging          = "logging"
	JSONHTTP         = "json_http"
	JSONRPC          = "json_rpc"
)

// Deps supplies the host services behind the native modules. Zero fields
// get defaults.
type Deps struct {
	Logger    *logging.Logger
	Queue     *thrower.Queue
	Raiser    *thrower.Raiser
	Transport jsonrpc.Transport
	RPCURL    string
	Methods   []string
}

// IDs lists the native module ids in registration order.
func IDs() []string {
	return []string{Queue, Thrower, Broadcaster, NamespacedEvents, Logging, JSONHTTP, JSONRPC}
}

// Register adds every native module to env.
func Register(env *module.Env, deps Deps) error {
	if deps.Logger == nil {
		logger, err := logging.New(logging.Options{})
		if err != nil {
			return fmt.Errorf("builtins: logger: %w", err)
		}
		deps.Logger = logger
	}
	if deps.Queue == nil {
		deps.Queue = thrower.NewQueue()
	}
	if deps.Raiser == nil {
		deps.Raiser = thrower.NewRaiser(deps.Queue, thrower.LogReporter(deps.Logger.Module(Thrower)))
	}
	if deps.Transport == nil {
		deps.Transport = jsonrpc.NewHTTPTransport()
	}

	native(env, Queue, nil, queueFactory(deps.Queue))
	native(env, Thrower, []string{Queue}, throwerFactory(deps.Raiser))
	native(env, Broadcaster, []string{Thrower}, broadcasterFactory)
	native(env, NamespacedEvents, []string{Broadcaster, Thrower}, eventsFactory)
	native(env, Logging, nil, loggingFactory(deps.Logger))
	native(env, JSONHTTP, nil, httpFactory(deps.Transport))
	native(env, JSONRPC, []string{JSONHTTP, NamespacedEvents, Logging}, rpcFactory(deps))
	return nil
}

func native(env *module.Env, id string, deps []string, factory module.Factory) {
	env.RegisterResource(id, func(scope *module.Scope) error {
		return scope.Module.Declare(deps, factory)
	})
}

func queueFactory(q *thrower.Queue) module.Factory {
	return func(_ module.Require, exports *module.Exports, _ *module.Module) error {
		exports.Set("Queue", q)
		exports.Set("queue", func(delay time.Duration, fn func()) thrower.ID {
			return q.Enqueue(delay, fn)
		})
		exports.Set("dequeue", q.Dequeue)
		return nil
	}
}

func throwerFactory(raiser *thrower.Raiser) module.Factory {
	return func(require module.Require, exports *module.Exports, _ *module.Module) error {
		if _, err := require(Queue); err != nil {
			return err
		}
		exports.Set("Raiser", raiser)
		exports.Set("raise", raiser.Raise)
		exports.Set("run", raiser.Run)
		return nil
	}
}

func broadcasterFactory(require module.Require, exports *module.Exports, _ *module.Module) error {
	raiser, err := requireValue[*thrower.Raiser](require, Thrower, "Raiser")
	if err != nil {
		return err
	}
	exports.Set("broadcast", func(handlers []events.Handler, args []any) {
		events.Broadcast(handlers, args, raiser)
	})
	return nil
}

func eventsFactory(require module.Require, exports *module.Exports, _ *module.Module) error {
	if _, err := require(Broadcaster); err != nil {
		return err
	}
	raiser, err := requireValue[*thrower.Raiser](require, Thrower, "Raiser")
	if err != nil {
		return err
	}
	exports.Set("makeEmitter", func() *events.Emitter {
		return events.NewEmitter(events.WithRaiser(raiser))
	})
	exports.Set("makeNotifier", func() *events.Notifier {
		return events.NewNotifier(events.WithRaiser(raiser))
	})
	exports.Set("emitter", events.NewEmitter(events.WithRaiser(raiser)))
	exports.Set("notifier", events.NewNotifier(events.WithRaiser(raiser)))
	return nil
}

func loggingFactory(logger *logging.Logger) module.Factory {
	return func(_ module.Require, exports *module.Exports, _ *module.Module) error {
		exports.Set("makeLogger", logger.Module)
		exports.Set("logs", logger.History().Entries)
		return nil
	}
}

func httpFactory(transport jsonrpc.Transport) module.Factory {
	return func(_ module.Require, exports *module.Exports, _ *module.Module) error {
		exports.Set("transport", transport)
		exports.Set("factory", jsonrpc.NewHTTPTransport)
		return nil
	}
}

func rpcFactory(deps Deps) module.Factory {
	return func(require module.Require, exports *module.Exports, mod *module.Module) error {
		transport, err := requireValue[jsonrpc.Transport](require, JSONHTTP, "transport")
		if err != nil {
			return err
		}
		emitter, err := requireValue[*events.Emitter](require, NamespacedEvents, "emitter")
		if err != nil {
			return err
		}
		makeLogger, err := requireValue[func(string) *zap.Logger](require, Logging, "makeLogger")
		if err != nil {
			return err
		}

		client := jsonrpc.NewClient(
			jsonrpc.WithTransport(transport),
			jsonrpc.WithEmitter(emitter),
			jsonrpc.WithLogger(makeLogger(mod.ID)),
		)
		if deps.RPCURL != "" || len(deps.Methods) > 0 {
			client.Init(deps.RPCURL, deps.Methods)
		}
		exports.Set("client", client)
		exports.Set("init", client.Init)
		exports.Set("url", client.SetURL)
		exports.Set("append", client.Append)
		exports.Set("send", client.Send)
		exports.Set("beforeSend", client.BeforeSend)
		return nil
	}
}

func requireValue[T any](require module.Require, id, name string) (T, error) {
	var zero T
	exports, err := require(id)
	if err != nil {
		return zero, err
	}
	value, ok := module.As[T](exports, name)
	if !ok {
		return zero, fmt.Errorf("builtins: %s does not export %s as %T", id, name, zero)
	}
	return value, nil
}
