/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	backoffutils "github.com/MrEliotA/modelops-studio-saas/pkg/utils/backoff"
	jsonutils "github.com/MrEliotA/modelops-studio-saas/pkg/utils/json"
)

const (
	fetchBatchSize  = 16
	fetchMaxWait    = 2 * time.Second
	consumerAckWait = 30 * time.Second

	connectMaxElapsed  = 30 * time.Second
	connectMaxInterval = 5 * time.Second
)

// Publisher is the write-side surface of the bus.
type Publisher interface {
	Publish(subject string, v interface{}) error
}

// Handler processes one message. Returning nil acks the message; returning
// an error naks it for redelivery.
type Handler func(ctx context.Context, msg *nats.Msg) error

// Client wraps a JetStream connection. Streams partition subjects per
// domain; workers bind durable pull consumers with explicit ack.
type Client struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

func Connect(url string) (*Client, error) {
	var nc *nats.Conn
	err := backoffutils.Retry(func() error {
		var err error
		nc, err = nats.Connect(url,
			nats.Name("modelops"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		return err
	}, connectMaxElapsed, connectMaxInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus %s, err: %v", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	klog.Infof("connected event bus %s", url)
	return &Client{nc: nc, js: js}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			klog.ErrorS(err, "failed to drain bus connection")
		}
	}
}

// EnsureStreams creates the streams if they do not exist. Interest retention
// keeps subjects without a bound consumer from accumulating messages.
func (c *Client) EnsureStreams() error {
	streams := []*nats.StreamConfig{
		{Name: v1.StreamGpu, Subjects: []string{v1.SubjectGpuAll}},
		{Name: v1.StreamServing, Subjects: []string{v1.SubjectServingAll}},
		{Name: v1.StreamMetering, Subjects: []string{v1.SubjectMeteringAll}},
	}
	for _, cfg := range streams {
		cfg.Retention = nats.InterestPolicy
		cfg.MaxAge = 24 * time.Hour
		_, err := c.js.StreamInfo(cfg.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return err
		}
		if _, err = c.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to add stream %s, err: %v", cfg.Name, err)
		}
		klog.Infof("created stream %s", cfg.Name)
	}
	return nil
}

func (c *Client) Publish(subject string, v interface{}) error {
	data := jsonutils.MarshalSilently(v)
	if data == nil {
		return fmt.Errorf("failed to marshal event for %s", subject)
	}
	if _, err := c.js.Publish(subject, data); err != nil {
		return err
	}
	return nil
}

// EnsureConsumer creates the durable pull consumer when missing.
func (c *Client) EnsureConsumer(stream, durable string, subjects []string, maxDeliver int) error {
	_, err := c.js.ConsumerInfo(stream, durable)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrConsumerNotFound) {
		return err
	}
	cfg := &nats.ConsumerConfig{
		Durable:        durable,
		AckPolicy:      nats.AckExplicitPolicy,
		AckWait:        consumerAckWait,
		MaxDeliver:     maxDeliver,
		FilterSubjects: subjects,
	}
	if len(subjects) == 1 {
		cfg.FilterSubjects = nil
		cfg.FilterSubject = subjects[0]
	}
	if _, err = c.js.AddConsumer(stream, cfg); err != nil {
		return fmt.Errorf("failed to add consumer %s on %s, err: %v", durable, stream, err)
	}
	klog.Infof("created consumer %s on stream %s", durable, stream)
	return nil
}

// PullLoop fetches and handles messages until the context is cancelled.
func (c *Client) PullLoop(ctx context.Context, stream, durable string, handler Handler) error {
	sub, err := c.js.PullSubscribe("", durable, nats.Bind(stream, durable))
	if err != nil {
		return fmt.Errorf("failed to bind consumer %s on %s, err: %v", durable, stream, err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		msgs, err := sub.Fetch(fetchBatchSize, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			klog.ErrorS(err, "failed to fetch messages", "stream", stream, "durable", durable)
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range msgs {
			if err = handler(ctx, msg); err != nil {
				klog.ErrorS(err, "failed to handle message", "subject", msg.Subject)
				if err = msg.Nak(); err != nil {
					klog.ErrorS(err, "failed to nak message", "subject", msg.Subject)
				}
				continue
			}
			if err = msg.Ack(); err != nil {
				klog.ErrorS(err, "failed to ack message", "subject", msg.Subject)
			}
		}
	}
}

// NumDelivered reports how many times the message has been delivered.
func NumDelivered(msg *nats.Msg) int {
	meta, err := msg.Metadata()
	if err != nil {
		return 1
	}
	return int(meta.NumDelivered)
}
