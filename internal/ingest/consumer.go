// Package ingest consumes InteractionRecords from Kafka and feeds them to the learning
// pipeline. Offsets are committed only for records that were processed or are
// permanently undecodable.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"engagement-engine/internal/models"
)

// Processor runs one learning session.
type Processor interface {
	Process(ctx context.Context, record models.InteractionRecord) (*models.LearningReport, error)
}

// Config configures the consumer.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	ClientID string
}

// Consumer polls a topic and processes each record. A partition whose record failed to
// process stays blocked, and fetching for it paused, for the lifetime of the consumer.
type Consumer struct {
	client    *kgo.Client
	processor Processor
	logger    *zap.Logger
	blocked   map[topicPartition]bool
}

// NewConsumer creates a consumer group member subscribed to cfg.Topic.
func NewConsumer(cfg Config, processor Processor, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "engagement-engine"
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Consumer{client: client, processor: processor, logger: logger, blocked: make(map[topicPartition]bool)}, nil
}

// Close closes the underlying client.
func (c *Consumer) Close() {
	c.client.Close()
}

// Start polls until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Kafka ingestion started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for _, fe := range errs {
				c.logger.Error("Error while polling",
					zap.String("topic", fe.Topic),
					zap.Int32("partition", fe.Partition),
					zap.Error(fe.Err))
			}
			continue
		}

		var records []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})

		commit := c.processRecords(ctx, records)
		if len(commit) > 0 {
			if err := c.client.CommitRecords(ctx, commit...); err != nil {
				c.logger.Error("Failed to commit records", zap.Error(err))
			}
		}
		if paused := c.blockedPartitions(); len(paused) > 0 {
			c.client.PauseFetchPartitions(paused)
		}
		c.client.AllowRebalance()
	}
}

type topicPartition struct {
	topic     string
	partition int32
}

// processRecords returns the last committable record per partition. A processing error
// blocks that partition for this and every later poll, so its offset is retried on
// restart.
func (c *Consumer) processRecords(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	if c.blocked == nil {
		c.blocked = make(map[topicPartition]bool)
	}
	lastSuccess := make(map[topicPartition]*kgo.Record)
	var order []topicPartition

	for _, record := range records {
		tp := topicPartition{topic: record.Topic, partition: record.Partition}
		if c.blocked[tp] {
			continue
		}
		if _, seen := lastSuccess[tp]; !seen {
			order = append(order, tp)
		}

		if err := c.handle(ctx, record); err != nil {
			c.logger.Error("Failed to handle record - will retry on restart",
				zap.String("topic", record.Topic),
				zap.Int32("partition", record.Partition),
				zap.Int64("offset", record.Offset),
				zap.Error(err))
			c.blocked[tp] = true
			continue
		}
		lastSuccess[tp] = record
	}

	commit := make([]*kgo.Record, 0, len(lastSuccess))
	for _, tp := range order {
		if r, ok := lastSuccess[tp]; ok && r != nil {
			commit = append(commit, r)
		}
	}
	return commit
}

func (c *Consumer) blockedPartitions() map[string][]int32 {
	if len(c.blocked) == 0 {
		return nil
	}
	out := make(map[string][]int32)
	for tp := range c.blocked {
		out[tp.topic] = append(out[tp.topic], tp.partition)
	}
	return out
}

func (c *Consumer) handle(ctx context.Context, record *kgo.Record) error {
	var rec models.InteractionRecord
	if err := json.Unmarshal(record.Value, &rec); err != nil {
		c.logger.Warn("Dropping undecodable interaction record",
			zap.Int64("offset", record.Offset),
			zap.Error(err))
		return nil
	}

	start := time.Now()
	report, err := c.processor.Process(ctx, rec)
	if err != nil {
		return err
	}

	c.logger.Debug("Interaction record processed",
		zap.String("session_id", report.SessionID),
		zap.String("status", report.Status),
		zap.Duration("duration", time.Since(start)))
	return nil
}
