package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/http-gpio/internal/gateway"
	"github.com/nerrad567/http-gpio/internal/gpio"
	"github.com/nerrad567/http-gpio/internal/infrastructure/mqtt"
)

// Command payload limits, matching the HTTP body limits.
const (
	maxValuePayload = 10
	maxBlinkPayload = 4 << 10
)

// Broker is the subset of *mqtt.Client the bridge uses.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
	QoS() byte
}

// PinGateway runs pin commands. *gateway.Gateway satisfies it.
type PinGateway interface {
	WritePin(ctx context.Context, pin gpio.PinID, value int) error
	BlinkPin(ctx context.Context, pin gpio.PinID, scheduleMS []uint32) (int, error)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds what NewBridge needs.
type Options struct {
	Broker  Broker
	Gateway PinGateway
	Logger  Logger // optional
}

// stateQueueSize bounds state updates waiting for the broker. Updates
// beyond it are dropped and counted as publish failures.
const stateQueueSize = 256

// Stats are the bridge counters.
type Stats struct {
	CommandsReceived uint64 `json:"commands_received"`
	CommandsFailed   uint64 `json:"commands_failed"`
	StatesPublished  uint64 `json:"states_published"`
	PublishFailures  uint64 `json:"publish_failures"`
}

// Bridge connects MQTT command topics to the gateway and publishes pin
// state back. Create it with NewBridge, register it as a gateway observer
// and call Start.
//
// All methods are safe for concurrent use.
type Bridge struct {
	broker  Broker
	gateway PinGateway
	topics  mqtt.Topics
	logger  Logger

	ctx    context.Context
	cancel context.CancelFunc

	// states is drained by a single goroutine so retained updates for a
	// pin reach the broker in the order the operations finished.
	states   chan stateUpdate
	quit     chan struct{}
	loopDone chan struct{}

	// mu guards started, stopped and commands.Add so Stop cannot miss a
	// command.
	mu       sync.Mutex
	started  bool
	stopped  bool
	commands sync.WaitGroup

	commandsReceived atomic.Uint64
	commandsFailed   atomic.Uint64
	statesPublished  atomic.Uint64
	publishFailures  atomic.Uint64
}

// NewBridge creates a bridge. Nothing is subscribed until Start.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Broker == nil {
		return nil, errors.New("bridge: broker is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("bridge: gateway is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		broker:   opts.Broker,
		gateway:  opts.Gateway,
		topics:   opts.Broker.Topics(),
		logger:   logger,
		ctx:      gateway.WithSource(ctx, gateway.SourceMQTT),
		cancel:   cancel,
		states:   make(chan stateUpdate, stateQueueSize),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go b.publishLoop()
	return b, nil
}

// Start subscribes to the command topics.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if b.started {
		return nil
	}

	topic := b.topics.AllCommands()
	if err := b.broker.Subscribe(topic, b.broker.QoS(), b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.started = true
	b.logger.Info("MQTT bridge started", "topic", topic)
	return nil
}

// Stop unsubscribes, cancels commands that have not started, waits for
// running commands and flushes queued state updates. A running blink
// plays to the end.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	started := b.started
	b.mu.Unlock()

	if started {
		if err := b.broker.Unsubscribe(b.topics.AllCommands()); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
			b.logger.Warn("unsubscribing from commands failed", "error", err)
		}
	}
	b.cancel()
	b.commands.Wait()
	close(b.quit)
	<-b.loopDone

	s := b.Stats()
	b.logger.Info("MQTT bridge stopped",
		"commands", s.CommandsReceived,
		"failed", s.CommandsFailed,
		"states", s.StatesPublished,
	)
}

// Stats returns the current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		CommandsReceived: b.commandsReceived.Load(),
		CommandsFailed:   b.commandsFailed.Load(),
		StatesPublished:  b.statesPublished.Load(),
		PublishFailures:  b.publishFailures.Load(),
	}
}

// goCommand runs fn on a new goroutine unless the bridge is stopped.
func (b *Bridge) goCommand(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.commands.Add(1)
	go func() {
		defer b.commands.Done()
		fn()
	}()
	return true
}

// handleMessage validates a command and runs it in the background. The
// returned error is logged by the MQTT client.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	b.commandsReceived.Add(1)

	cmd, err := b.parseCommand(topic, payload)
	if err != nil {
		b.commandsFailed.Add(1)
		return err
	}

	if !b.goCommand(func() { b.execute(cmd) }) {
		b.commandsFailed.Add(1)
		return ErrStopped
	}
	return nil
}

type command struct {
	pin      gpio.PinID
	kind     string
	value    int
	schedule []uint32
}

func (b *Bridge) parseCommand(topic string, payload []byte) (command, error) {
	pin, kind, err := b.topics.ParseCommand(topic)
	if err != nil {
		return command{}, err
	}

	cmd := command{pin: pin, kind: kind}
	switch kind {
	case mqtt.CommandValue:
		if len(payload) > maxValuePayload {
			return command{}, fmt.Errorf("%w: %s: payload of %d bytes exceeds %d", ErrInvalidPayload, topic, len(payload), maxValuePayload)
		}
		if err := json.Unmarshal(payload, &cmd.value); err != nil {
			return command{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, topic, err)
		}
	case mqtt.CommandBlink:
		if len(payload) > maxBlinkPayload {
			return command{}, fmt.Errorf("%w: %s: payload of %d bytes exceeds %d", ErrInvalidPayload, topic, len(payload), maxBlinkPayload)
		}
		if err := json.Unmarshal(payload, &cmd.schedule); err != nil {
			return command{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, topic, err)
		}
		if cmd.schedule == nil {
			return command{}, fmt.Errorf("%w: %s: schedule must be a JSON array", ErrInvalidPayload, topic)
		}
	}
	return cmd, nil
}

func (b *Bridge) execute(cmd command) {
	var err error
	switch cmd.kind {
	case mqtt.CommandValue:
		err = b.gateway.WritePin(b.ctx, cmd.pin, cmd.value)
	case mqtt.CommandBlink:
		_, err = b.gateway.BlinkPin(b.ctx, cmd.pin, cmd.schedule)
	}

	if err != nil {
		b.commandsFailed.Add(1)
		b.logger.Warn("MQTT command failed",
			"pin", cmd.pin.String(),
			"command", cmd.kind,
			"error", err,
		)
	}
}

type stateUpdate struct {
	topic   string
	payload []byte
}

// ObservePinOperation implements gateway.Observer. Successful operations
// are queued for the pin's retained state topic; the gateway never waits
// on the broker.
func (b *Bridge) ObservePinOperation(e gateway.Event) {
	if !e.Succeeded() {
		return
	}

	payload, err := json.Marshal(e.Message())
	if err != nil {
		b.logger.Error("encoding pin state failed", "pin", e.Pin.String(), "error", err)
		return
	}

	select {
	case b.states <- stateUpdate{topic: b.topics.State(e.Pin), payload: payload}:
	default:
		b.publishFailures.Add(1)
		b.logger.Warn("pin state queue full, dropping update", "pin", e.Pin.String())
	}
}

func (b *Bridge) publishLoop() {
	defer close(b.loopDone)
	for {
		select {
		case u := <-b.states:
			b.publish(u)
		case <-b.quit:
			for {
				select {
				case u := <-b.states:
					b.publish(u)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(u stateUpdate) {
	if err := b.broker.PublishRetained(u.topic, u.payload); err != nil {
		b.publishFailures.Add(1)
		b.logger.Warn("publishing pin state failed", "topic", u.topic, "error", err)
		return
	}
	b.statesPublished.Add(1)
}
