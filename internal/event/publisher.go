package event

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"prism/config"
	"prism/pkg/logger"
	"prism/pkg/utils"

	"github.com/linkedin/goavro/v2"
	"github.com/riferrei/srclient"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const (
	StatusInReview = "IN_REVIEW"
	StatusFailed   = "FAILED"

	// confluentMagicByte prefixes every schema-registry framed message.
	confluentMagicByte = 0x00
)

// TaskEvent is the payload forwarded on the task-completed and task-failed topics.
type TaskEvent struct {
	TaskID       uint    `json:"taskId"`
	BoardID      uint    `json:"boardId"`
	UserID       string  `json:"userId"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	AgentName    *string `json:"agentName"`
	ExecutionID  *uint   `json:"executionId"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// Publisher forwards terminal task events to the broker. Every method is best effort:
// failures are logged and never returned to the caller.
type Publisher interface {
	Start(ctx context.Context)
	Send(ctx context.Context, topic string, evt TaskEvent)
	PublishTaskCompleted(ctx context.Context, evt TaskEvent)
	PublishTaskFailed(ctx context.Context, evt TaskEvent)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// schemaResolver returns the latest registered schema id and definition for a subject.
type schemaResolver interface {
	LatestSchema(subject string) (int, string, error)
}

type srSchemaResolver struct {
	client srclient.ISchemaRegistryClient
}

func (r *srSchemaResolver) LatestSchema(subject string) (int, string, error) {
	schema, err := r.client.GetLatestSchema(subject)
	if err != nil {
		return 0, "", err
	}
	return schema.ID(), schema.Schema(), nil
}

type topicCodec struct {
	schemaID int
	codec    *goavro.Codec
}

type kafkaPublisher struct {
	cfg      config.Kafka
	log      *logger.Logger
	writer   messageWriter
	resolver schemaResolver
	ping     func(ctx context.Context) error

	connected         atomic.Bool
	registryAvailable atomic.Bool

	mu     sync.RWMutex
	codecs map[string]topicCodec

	// sendMu orders wg.Add in Send against the closing flag set by Close.
	sendMu  sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewKafkaPublisher(cfg config.Kafka, log *logger.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
	}

	var resolver schemaResolver
	if cfg.SchemaRegistryURL != "" {
		resolver = &srSchemaResolver{client: srclient.CreateSchemaRegistryClient(cfg.SchemaRegistryURL)}
	}

	return newKafkaPublisher(cfg, log, writer, resolver, func(ctx context.Context) error {
		return dialAny(ctx, cfg.Brokers)
	})
}

func newKafkaPublisher(cfg config.Kafka, log *logger.Logger, writer messageWriter, resolver schemaResolver, ping func(ctx context.Context) error) *kafkaPublisher {
	return &kafkaPublisher{
		cfg:      cfg,
		log:      log,
		writer:   writer,
		resolver: resolver,
		ping:     ping,
		codecs:   make(map[string]topicCodec),
	}
}

func dialAny(ctx context.Context, brokers []string) error {
	var lastErr error = fmt.Errorf("no brokers configured")
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return lastErr
}

// Start checks broker reachability and resolves schema ids for both topics.
// Either step can fail; the publisher then runs degraded.
func (p *kafkaPublisher) Start(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.ping(pingCtx); err != nil {
		p.log.WarnContext(ctx, "Kafka unavailable, terminal events will be dropped", logger.ErrorField(err), logger.AlertField())
	} else {
		p.connected.Store(true)
		p.log.InfoContext(ctx, "Kafka producer connected")
	}

	if p.resolver == nil {
		p.log.WarnContext(ctx, "Schema registry not configured, using JSON encoding")
		return
	}

	var g errgroup.Group
	for _, topic := range []string{p.cfg.TopicTaskCompleted, p.cfg.TopicTaskFailed} {
		topic := topic
		g.Go(func() error {
			return p.resolveTopic(topic)
		})
	}
	if err := g.Wait(); err != nil {
		p.log.WarnContext(ctx, "Schema registry unavailable, falling back to JSON", logger.ErrorField(err))
		return
	}
	p.registryAvailable.Store(true)
	p.log.InfoContext(ctx, "Schema registry connected")
}

func (p *kafkaPublisher) resolveTopic(topic string) error {
	subject := topic + "-value"
	id, schema, err := p.resolver.LatestSchema(subject)
	if err != nil {
		return fmt.Errorf("resolve schema for %s: %w", subject, err)
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("parse schema for %s: %w", subject, err)
	}

	p.mu.Lock()
	p.codecs[topic] = topicCodec{schemaID: id, codec: codec}
	p.mu.Unlock()
	return nil
}

func (p *kafkaPublisher) PublishTaskCompleted(ctx context.Context, evt TaskEvent) {
	p.Send(ctx, p.cfg.TopicTaskCompleted, evt)
}

func (p *kafkaPublisher) PublishTaskFailed(ctx context.Context, evt TaskEvent) {
	p.Send(ctx, p.cfg.TopicTaskFailed, evt)
}

// Send returns immediately. The broker write runs on its own goroutine.
func (p *kafkaPublisher) Send(ctx context.Context, topic string, evt TaskEvent) {
	if !p.connected.Load() {
		p.log.WarnContext(ctx, "Kafka not connected, dropping event",
			logger.StringField("topic", topic),
			logger.TaskIDField(evt.TaskID),
		)
		return
	}

	value, err := p.encode(topic, evt)
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to encode event", logger.ErrorField(err), logger.StringField("topic", topic))
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatUint(uint64(evt.TaskID), 10)),
		Value: value,
	}

	p.sendMu.Lock()
	if p.closing {
		p.sendMu.Unlock()
		p.log.WarnContext(ctx, "Kafka producer closing, dropping event",
			logger.StringField("topic", topic),
			logger.TaskIDField(evt.TaskID),
		)
		return
	}
	p.wg.Add(1)
	p.sendMu.Unlock()

	writeCtx := context.WithoutCancel(ctx)
	utils.GoSafe(func() {
		defer p.wg.Done()

		timeout := p.cfg.WriteTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		wctx, cancel := context.WithTimeout(writeCtx, timeout)
		defer cancel()

		if err := p.writer.WriteMessages(wctx, msg); err != nil {
			p.log.ErrorContext(wctx, "Failed to publish event",
				logger.ErrorField(err),
				logger.StringField("topic", topic),
				logger.TaskIDField(evt.TaskID),
			)
			return
		}
		p.log.DebugContext(wctx, "Event published",
			logger.StringField("topic", topic),
			logger.TaskIDField(evt.TaskID),
		)
	}, func(err error) {
		p.log.Error("Panic while publishing event", logger.ErrorField(err), logger.StringField("topic", topic))
	})
}

// encode uses the topic's Avro schema in Confluent framing once every topic resolved
// at Start, JSON otherwise. A partial resolution keeps both topics on JSON.
func (p *kafkaPublisher) encode(topic string, evt TaskEvent) ([]byte, error) {
	if !p.registryAvailable.Load() {
		return json.Marshal(evt)
	}

	p.mu.RLock()
	tc, ok := p.codecs[topic]
	p.mu.RUnlock()

	if !ok {
		return json.Marshal(evt)
	}

	header := make([]byte, 5)
	header[0] = confluentMagicByte
	binary.BigEndian.PutUint32(header[1:], uint32(tc.schemaID))

	return tc.codec.BinaryFromNative(header, toAvroNative(evt))
}

func toAvroNative(evt TaskEvent) map[string]interface{} {
	native := map[string]interface{}{
		"taskId":       int64(evt.TaskID),
		"boardId":      int64(evt.BoardID),
		"userId":       evt.UserID,
		"title":        evt.Title,
		"status":       evt.Status,
		"agentName":    nil,
		"executionId":  nil,
		"errorMessage": nil,
		"timestamp":    evt.Timestamp,
	}
	if evt.AgentName != nil {
		native["agentName"] = goavro.Union("string", *evt.AgentName)
	}
	if evt.ExecutionID != nil {
		native["executionId"] = goavro.Union("long", int64(*evt.ExecutionID))
	}
	if evt.ErrorMessage != nil {
		native["errorMessage"] = goavro.Union("string", *evt.ErrorMessage)
	}
	return native
}

// Close refuses new sends, waits for in-flight writes, then disconnects if a
// connection was made.
func (p *kafkaPublisher) Close() error {
	p.sendMu.Lock()
	p.closing = true
	p.sendMu.Unlock()

	p.wg.Wait()
	if !p.connected.Load() {
		return nil
	}
	p.log.Info("Disconnecting Kafka producer")
	p.connected.Store(false)
	return p.writer.Close()
}

// nopPublisher is used when the broker is disabled in configuration.
type nopPublisher struct {
	log *logger.Logger
}

func NewNopPublisher(log *logger.Logger) Publisher {
	return &nopPublisher{log: log}
}

func (n *nopPublisher) Start(ctx context.Context) {
	n.log.InfoContext(ctx, "Kafka disabled, terminal events are not forwarded")
}

func (n *nopPublisher) Send(context.Context, string, TaskEvent)         {}
func (n *nopPublisher) PublishTaskCompleted(context.Context, TaskEvent) {}
func (n *nopPublisher) PublishTaskFailed(context.Context, TaskEvent)    {}
func (n *nopPublisher) Close() error                                    { return nil }
