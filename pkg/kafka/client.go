// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/tasks"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.EmbeddingTask) error
}

// Producer 向 Kafka 投递向量补算任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

// Enqueue 发送一个向量补算任务，以 resume_id 作为消息 key。
func (p *Producer) Enqueue(ctx context.Context, task tasks.EmbeddingTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(taskKey(task)),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func taskKey(task tasks.EmbeddingTask) string {
	return fmt.Sprintf("resume:%d", task.ResumeID)
}

// AttemptCounter 记录任务的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string)
}

// NewAttemptCounter 优先使用 Redis 计数，rdb 为 nil 时退化为进程内计数。
func NewAttemptCounter(rdb *redis.Client) AttemptCounter {
	if rdb == nil {
		return &memoryCounter{counts: map[string]int64{}}
	}
	return &redisCounter{rdb: rdb}
}

type redisCounter struct {
	rdb *redis.Client
}

func (c *redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	attemptsKey := "kafka:attempts:" + key
	attempts, err := c.rdb.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
	return attempts, nil
}

func (c *redisCounter) Reset(ctx context.Context, key string) {
	_ = c.rdb.Del(ctx, "kafka:attempts:"+key).Err()
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *memoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *memoryCounter) Reset(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
}

// messageReader 是 Consumer 使用的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 消费向量补算任务，失败时借助计数器限制重试次数。
type Consumer struct {
	reader      messageReader
	processor   TaskProcessor
	counter     AttemptCounter
	maxAttempts int64
	backoff     time.Duration
}

// NewConsumer 创建一个 Kafka 消费者。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, counter AttemptCounter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, processor, counter, cfg.MaxAttempts)
}

func newConsumer(r messageReader, processor TaskProcessor, counter AttemptCounter, maxAttempts int) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Consumer{reader: r, processor: processor, counter: counter, maxAttempts: int64(maxAttempts), backoff: time.Second}
}

// Run 循环处理消息，直到 ctx 被取消或读取失败。
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka 消费者已启动")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			log.Error("从 Kafka 读取消息失败", err)
			return err
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	log.Infof("收到 Kafka 消息: offset %d", m.Offset)

	var task tasks.EmbeddingTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		c.commit(ctx, m)
		return
	}

	key := taskKey(task)
	for {
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("向量任务处理成功: ResumeID=%d", task.ResumeID)
			c.counter.Reset(ctx, key)
			c.commit(ctx, m)
			return
		}

		log.Errorf("处理向量任务失败: ResumeID=%d, Error: %v", task.ResumeID, err)
		attempts, incErr := c.counter.Incr(ctx, key)
		if incErr != nil {
			// 计数失败时不提交 offset，消费者重启后 Kafka 会重投
			return
		}
		if attempts >= c.maxAttempts {
			log.Errorf("向量任务多次失败(>=%d)，提交 offset 终止重试: ResumeID=%d", c.maxAttempts, task.ResumeID)
			c.counter.Reset(ctx, key)
			c.commit(ctx, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempts) * c.backoff):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
