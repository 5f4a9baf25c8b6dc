package queue

import (
	"context"
	"encoding/json"
	"fmt"

	id "talanta/pkg/domain"

	"talanta/internal/platform/kafka"
)

// Topic is the default topic carrying verification jobs from the upload
// boundary to the workers.
const Topic = "verification.jobs"

// envelope is the wire form of a Job. The ID travels as its string form so
// payloads stay readable in topic dumps.
type envelope struct {
	VerificationID string `json:"verification_id"`
	Attempt        int    `json:"attempt"`
}

// KafkaQueue publishes jobs to the verification topic. The record key is
// the verification ID, so redeliveries of one record stay on one partition.
type KafkaQueue struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaQueue(producer *kafka.Producer, topic string) *KafkaQueue {
	if topic == "" {
		topic = Topic
	}
	return &KafkaQueue{producer: producer, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(envelope{
		VerificationID: job.VerificationID.String(),
		Attempt:        job.Attempt,
	})
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	if err := q.producer.Produce(ctx, q.topic, []byte(job.VerificationID.String()), payload); err != nil {
		return fmt.Errorf("enqueueing verification job: %w", err)
	}
	return nil
}

// DecodeJob parses a consumed message back into a Job.
func DecodeJob(msg *kafka.Message) (Job, error) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Job{}, fmt.Errorf("decoding job payload: %w", err)
	}
	recID, err := id.ParseVerificationID(env.VerificationID)
	if err != nil {
		return Job{}, fmt.Errorf("decoding job payload: %w", err)
	}
	return Job{VerificationID: recID, Attempt: env.Attempt}, nil
}
