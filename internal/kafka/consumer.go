package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
	"vn.io.arda/tenant-manager/internal/application"
	"vn.io.arda/tenant-manager/internal/kafka/registry"

	// Blank import triggers init() in each handler file,
	// registering all event handlers into the registry.
	_ "vn.io.arda/tenant-manager/internal/kafka/handlers"
)

// Consumer wraps the franz-go Kafka client. Role lifecycle events are
// turned into sync requests on the Syncer; the record is committed
// regardless of the sync outcome, so the request that mutated the role
// never waits on — or fails because of — our reconciliation.
type Consumer struct {
	client *kgo.Client
	syncer *application.Syncer
}

// New creates a Consumer with the given brokers, group ID, and topics.
func New(brokers []string, groupID string, topics []string, syncer *application.Syncer) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, syncer: syncer}, nil
}

// Start begins polling Kafka and processing records. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		fetches.EachRecord(func(r *kgo.Record) {
			c.process(r)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// process dispatches a Kafka record to the registered handler via the
// registry, then hands any resulting sync request to the Syncer.
func (c *Consumer) process(r *kgo.Record) {
	log.Debug().
		Str("topic", r.Topic).
		Str("key", string(r.Key)).
		Msg("processing kafka record")

	req := registry.Dispatch(r.Topic, r.Value)
	if req == nil {
		return
	}

	log.Info().Str("reason", req.Reason).Msg("scheduling tenant sync from kafka event")
	c.syncer.Request(req.Reason)
}
