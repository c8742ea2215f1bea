// Package notify records user notifications and mirrors them onto a Kafka
// topic for downstream consumers. Delivery is best effort everywhere: a
// broken broker never blocks a lifecycle transition.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"exposure/types"
)

// Service stores notifications in memory and optionally publishes each one
// to Kafka. Satisfies article.Notifier.
type Service struct {
	mu      sync.RWMutex
	records map[string]*types.Notification

	producer sarama.SyncProducer // nil when Kafka is not configured
	topic    string
}

// NewService creates a notification service without Kafka
func NewService() *Service {
	return &Service{records: make(map[string]*types.Notification)}
}

// NewServiceWithKafka creates a notification service that mirrors events to
// the given topic
func NewServiceWithKafka(brokers []string, topic string) (*Service, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		records:  make(map[string]*types.Notification),
		producer: producer,
		topic:    topic,
	}, nil
}

// Close shuts down the Kafka producer if one is attached
func (s *Service) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// Notify records the notification and emits it to Kafka
func (s *Service) Notify(ctx context.Context, n types.Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	n.IsRead = false

	s.mu.Lock()
	s.records[n.ID] = &n
	s.mu.Unlock()

	if s.producer == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("notify: encode event: %v", err)
		return
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(n.UserID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		log.Printf("notify: kafka send: %v", err)
	}
}

// ListForUser returns the user's notifications, newest first
func (s *Service) ListForUser(userID string) []types.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Notification
	for _, n := range s.records {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UnreadCount returns how many unread notifications the user has
func (s *Service) UnreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.records {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read
func (s *Service) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return types.ErrNotFound
	}
	n.IsRead = true
	return nil
}

// DropRelated removes notifications referencing a deleted record. Weak
// references: this is cleanup, not a transactional cascade.
func (s *Service) DropRelated(relatedType, relatedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.records {
		if n.RelatedType == relatedType && n.RelatedID == relatedID {
			delete(s.records, id)
		}
	}
}
