package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

const popTimeout = 5 * time.Second

// RenderRequest is the JSON payload a transport pushes onto the request list.
type RenderRequest struct {
	JobID    string `json:"job_id"`
	Script   string `json:"script"`
	Mode     string `json:"mode,omitempty"`
	Language string `json:"language,omitempty"`
	Slow     *bool  `json:"slow,omitempty"`
	// ReplyTo is opaque routing data echoed back in the result, e.g. a chat id.
	ReplyTo string `json:"reply_to,omitempty"`
}

// RenderReply is published on the result channel once per request.
type RenderReply struct {
	JobID     string  `json:"job_id"`
	ReplyTo   string  `json:"reply_to,omitempty"`
	Status    string  `json:"status"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Message   string  `json:"message"`
	VideoPath string  `json:"video_path,omitempty"`
	GDriveURL string  `json:"gdrive_url,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// RedisFeeder pulls render requests from a Redis list and publishes each
// outcome on a channel.
type RedisFeeder struct {
	client   *redis.Client
	pool     *WorkerPool
	defaults Defaults
	list     string
	channel  string

	publish func(ctx context.Context, channel string, payload []byte) error
}

// NewRedisClient initializes and returns a Redis client
func NewRedisClient(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	log.Println("Redis client initialized")
	return rdb
}

func NewRedisFeeder(client *redis.Client, pool *WorkerPool, defaults Defaults, list, channel string) *RedisFeeder {
	f := &RedisFeeder{
		client:   client,
		pool:     pool,
		defaults: defaults,
		list:     list,
		channel:  channel,
	}
	f.publish = func(ctx context.Context, channel string, payload []byte) error {
		return f.client.Publish(ctx, channel, payload).Err()
	}
	return f
}

// Run blocks popping requests until ctx is cancelled.
func (f *RedisFeeder) Run(ctx context.Context) error {
	if err := f.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	log.Printf("Redis feeder listening on list %s, replying on %s", f.list, f.channel)

	for {
		vals, err := f.client.BRPop(ctx, popTimeout, f.list).Result()
		switch {
		case ctx.Err() != nil:
			log.Println("Redis feeder stopped")
			return nil
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			log.Printf("Redis feeder: BRPOP failed: %v", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		// BRPOP returns [list, value].
		if len(vals) == 2 {
			f.handle(ctx, vals[1])
		}
	}
}

// handle validates and enqueues one payload. Every payload produces exactly
// one reply, immediately for rejected requests or from OnDone otherwise.
func (f *RedisFeeder) handle(ctx context.Context, payload string) {
	var req RenderRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		log.Printf("Redis feeder: dropping malformed request: %v", err)
		return
	}
	if req.JobID == "" {
		req.JobID = "job_" + uuid.New().String()
	}

	rj, err := f.defaults.Build(req.JobID, req.Script, req.Mode, req.Language, req.Slow)
	if err != nil {
		f.reply(ctx, rejected(req, err))
		return
	}

	job := NewJob(types.SourceRedis, rj)
	job.OnDone = func(j *Job) {
		f.reply(context.Background(), replyFor(req, j))
	}

	if err := f.pool.EnqueueJob(job); err != nil {
		f.reply(ctx, rejected(req, err))
	}
}

func (f *RedisFeeder) reply(ctx context.Context, r RenderReply) {
	payload, err := json.Marshal(r)
	if err != nil {
		log.Printf("Redis feeder: failed to encode reply for %s: %v", r.JobID, err)
		return
	}
	if err := f.publish(ctx, f.channel, payload); err != nil {
		log.Printf("Redis feeder: failed to publish reply for %s: %v", r.JobID, err)
	}
}

func rejected(req RenderRequest, err error) RenderReply {
	return RenderReply{
		JobID:     req.JobID,
		ReplyTo:   req.ReplyTo,
		Status:    types.StatusFailed,
		ErrorKind: types.ErrorKindInternal,
		Message:   render.OutcomeMessage(err),
	}
}

func replyFor(req RenderRequest, j *Job) RenderReply {
	s := j.Snapshot()
	r := RenderReply{
		JobID:     j.ID,
		ReplyTo:   req.ReplyTo,
		Status:    s.Status,
		ErrorKind: s.ErrorKind,
		Message:   s.Message,
	}
	if s.Result != nil {
		r.VideoPath = s.Result.LocalPath
		r.GDriveURL = s.Result.GDriveURL
		r.Duration = s.Result.AudioDuration
	}
	return r
}
