package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/surgisim/fusion/internal/api"
	"github.com/surgisim/fusion/internal/config"
	"github.com/surgisim/fusion/internal/telemetry"
	"github.com/surgisim/fusion/internal/transport"
	"github.com/surgisim/fusion/internal/transport/bus"
	"github.com/surgisim/fusion/internal/transport/websocket"
)

const loopbackID = "loopback"

var loopbackDone sync.WaitGroup

// initTransport brings up the pub/sub side. It is paired with closeTransport.
func initTransport(ctx context.Context) error {
	tcfg := config.GetTransportConfig()

	switch tcfg.Type {
	case "bus":
		b := bus.New()
		ch, err := startLoopback(b, tcfg)
		if err != nil {
			return err
		}
		outbound = &busPublisher{
			TopicPublisher: b.Publisher(tcfg.WebSocket.Topic),
			bus:            b,
			topic:          tcfg.WebSocket.Topic,
			loopback:       ch,
		}
		Logger.Info("Bus transport initialized", "topic", tcfg.WebSocket.Topic)

	case "websocket":
		acfg := config.GetAPIConfig()
		apiClient = api.New(acfg.ServerURL, acfg.APIKey)
		if err := apiClient.Healthcheck(ctx); err != nil {
			Logger.Warn("Relay healthcheck failed, dialing anyway", "url", acfg.ServerURL, "error", err)
		}

		ws := websocket.New(tcfg.WebSocket, Logger)
		if err := ws.Dial(); err != nil {
			if errors.Is(err, websocket.ErrInvalidURL) {
				return fmt.Errorf("dial relay: %w", err)
			}
			Logger.Warn("Relay not reachable, publishing once it connects", "url", tcfg.WebSocket.URL, "error", err)
		}
		outbound = ws
		Logger.Info("WebSocket transport initialized", "url", tcfg.WebSocket.URL, "topic", tcfg.WebSocket.Topic)

	default:
		return fmt.Errorf("unknown transport %q", tcfg.Type)
	}
	return nil
}

func closeTransport() {
	if framePublisher != nil {
		if err := framePublisher.Close(); err != nil {
			Logger.Error("Failed to close transport", "error", err)
		}
	} else if outbound != nil {
		outbound.Close()
	}
	loopbackDone.Wait()
}

// startLoopback subscribes a decoder to the bus so in-process runs check
// every published frame.
func startLoopback(b *bus.Bus, tcfg config.TransportConfig) (chan []byte, error) {
	ch := make(chan []byte, tcfg.BusBuffer)
	if err := b.Subscribe(tcfg.WebSocket.Topic, loopbackID, ch); err != nil {
		return nil, fmt.Errorf("subscribe loopback: %w", err)
	}

	logger := Logger.With("component", "loopback")
	loopbackDone.Add(1)
	go func() {
		defer loopbackDone.Done()
		for msg := range ch {
			if _, err := telemetry.Unmarshal(msg); err != nil {
				logger.Error("Malformed frame on bus", "error", err, "bytes", len(msg))
			}
		}
	}()
	return ch, nil
}

// busPublisher adds loopback stats to the topic publisher for the monitor.
type busPublisher struct {
	*bus.TopicPublisher
	bus      *bus.Bus
	topic    string
	loopback chan []byte
	once     sync.Once
}

var _ transport.Publisher = (*busPublisher)(nil)

func (p *busPublisher) Stats() transport.Stats {
	s, _ := p.bus.Stats(p.topic, loopbackID)
	return s
}

// Close shuts the bus, after which nothing sends on the loopback channel.
func (p *busPublisher) Close() error {
	err := p.TopicPublisher.Close()
	p.once.Do(func() { close(p.loopback) })
	return err
}
