// Copyright 2020 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from datasync/chaindatafetcher/event/kafka/kafka.go
// and datasync/chaindatafetcher/kafka/repository.go (2020). Modified and
// improved for the klaytn development: the consumer-group half (this
// exporter is publish-only) and the generic broker interface are gone, kept
// is the AsyncProducer + ClusterAdmin wiring and the block-group publish
// shape.
package exporter

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/ethereum/go-ethereum/core/types"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

// KafkaConfig configures the kafka-backed exporter.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	Partitions  int32
	Replicas    int16
}

// DefaultKafkaConfig mirrors chaindatafetcher/kafka's defaults.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		TopicPrefix: "chainsim",
		Partitions:  1,
		Replicas:    1,
	}
}

type kafkaRepository struct {
	config   *KafkaConfig
	producer sarama.AsyncProducer
	admin    sarama.ClusterAdmin
}

// NewKafkaRepository connects to config.Brokers, creating the producer and
// the cluster-admin client used for topic auto-creation.
func NewKafkaRepository(config *KafkaConfig) (Repository, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.Flush.Frequency = 500 * time.Millisecond
	saramaCfg.Version = sarama.MaxVersion

	producer, err := sarama.NewAsyncProducer(config.Brokers, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "exporter: start sarama producer")
	}
	admin, err := sarama.NewClusterAdmin(config.Brokers, saramaCfg)
	if err != nil {
		producer.Close()
		return nil, errors.Wrap(err, "exporter: start sarama cluster admin")
	}

	go func() {
		for err := range producer.Errors() {
			logger.Error("kafka publish failed", "err", err)
		}
	}()

	r := &kafkaRepository{config: config, producer: producer, admin: admin}
	if err := r.createTopic(config.TopicPrefix + "-blockgroup"); err != nil {
		logger.Warn("topic creation skipped", "err", err)
	}
	return r, nil
}

func (r *kafkaRepository) createTopic(topic string) error {
	return r.admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     r.config.Partitions,
		ReplicationFactor: r.config.Replicas,
	}, false)
}

func (r *kafkaRepository) HandleBlock(block *types.Block, receipts types.Receipts, logs []*types.Log) error {
	output := newBlockGroupOutput(block, receipts, logs)
	data, err := json.Marshal(output)
	if err != nil {
		return errors.Wrap(err, "exporter: marshal block group")
	}

	correlationID, err := uuid.GenerateUUID()
	if err != nil {
		return errors.Wrap(err, "exporter: generate correlation id")
	}

	topic := r.config.TopicPrefix + "-blockgroup"
	r.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(block.Hash().Hex()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("correlation-id"), Value: []byte(correlationID)},
		},
	}
	return nil
}

func (r *kafkaRepository) Close() {
	r.producer.Close()
	r.admin.Close()
}
