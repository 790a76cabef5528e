package jetstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/docuchat/docuchat/queue"
)

type Config struct {
	Stream      string
	Subject     string
	Consumer    string
	MaxDeliver  int
	AckWait     time.Duration
	Concurrency int
}

// NewQueue binds a work-queue stream on the given NATS connection. The stream
// retains each job until its consumer acknowledges it; redelivery and the
// dead-letter bound are enforced server-side through the consumer's
// MaxDeliver setting.
func NewQueue(ctx context.Context, nc *nats.Conn, cfg Config) (*Queue, error) {
	if cfg.MaxDeliver < 1 {
		cfg.MaxDeliver = 3
	}

	if cfg.AckWait <= 0 {
		cfg.AckWait = 2 * time.Minute
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})

	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("queue", "jetstream"),
		zap.String("stream", cfg.Stream),
	)

	return &Queue{
		js:     js,
		stream: stream,
		cfg:    cfg,
		pool:   pool,
		log:    log,
	}, nil
}

type Queue struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    Config
	pool   *ants.Pool
	cctx   jetstream.ConsumeContext
	log    *zap.Logger
}

func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(&job)
	if err != nil {
		return err
	}

	_, err = q.js.Publish(ctx, q.cfg.Subject, data)
	return err
}

func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	cons, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    q.cfg.Consumer,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    q.cfg.AckWait,
		MaxDeliver: q.cfg.MaxDeliver,
	})

	if err != nil {
		return err
	}

	cctx, err := cons.Consume(func(msg jetstream.Msg) {
		err := q.pool.Submit(func() {
			var job queue.Job
			if err := json.Unmarshal(msg.Data(), &job); err != nil {
				q.log.Error("undecodable job", zap.Error(err))

				// Poison message, redelivery cannot help.
				msg.Term()
				return
			}

			log := q.log.With(
				zap.String("collection_id", job.CollectionID),
				zap.String("kind", string(job.Kind)),
			)

			if err := handler(ctx, job); err != nil {
				log.Error(err.Error())
				msg.Nak()
				return
			}

			msg.Ack()
		})

		if err != nil {
			msg.Nak()
		}
	})

	if err != nil {
		return err
	}

	q.cctx = cctx
	return nil
}

func (q *Queue) Close() error {
	if q.cctx != nil {
		q.cctx.Stop()
		q.cctx = nil
	}

	q.pool.Release()
	return nil
}
