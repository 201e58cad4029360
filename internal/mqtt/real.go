package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/burst-fire/internal/logger"
	"github.com/sweeney/burst-fire/internal/logic"
)

const (
	// bufferCapacity bounds messages kept while the broker is unreachable.
	bufferCapacity = 256

	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logger.Log
	prefix string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. It does not wait
// for the connection: the client keeps retrying in the background.
func NewRealPublisher(log *logger.Log, broker, clientID, prefix string) *RealPublisher {
	p := &RealPublisher{
		log:    log,
		prefix: prefix,
		buf:    newRingBuffer(bufferCapacity),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetWill(SystemTopic(prefix), string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	dropped := p.buf.dropped
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.log.With(logger.Fields{"replayed": len(pending), "dropped": dropped}).Info("connected to broker")
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.log.Warnf("replay to %s: %v", m.topic, err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warnf("connection lost: %v", err)
}

// Publish sends an engine event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: state changes must not be lost across broker hiccups.
	return p.publish(bufferedMsg{topic: EventsTopic(p.prefix), payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: SystemTopic(p.prefix), payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.buf.push(m)
		p.mu.Unlock()
		if dropped {
			p.log.Debugf("buffer full (%d messages), dropped oldest", bufferCapacity)
		}
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
