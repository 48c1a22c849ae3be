// Package queue is a small Redis-backed job queue with retries, delayed
// re-delivery, stalled job recovery and bounded retention of finished jobs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// State is the lifecycle state of a job.
type State string

// Job states
const (
	StateQueued    State = "queued"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrJobNotFound is returned for unknown or already removed jobs.
var ErrJobNotFound = errors.New("job not found")

// Hash fields of a job.
const (
	fieldPayload     = "payload"
	fieldState       = "state"
	fieldAttempts    = "attempts"
	fieldMaxAttempts = "max_attempts"
	fieldProgress    = "progress"
	fieldResult      = "result"
	fieldReason      = "reason"
	fieldCreatedAt   = "created_at"
	fieldStartedAt   = "started_at"
	fieldFinishedAt  = "finished_at"
	fieldLeaseUntil  = "lease_until"
)

// reasonStalled is recorded when a worker stopped renewing a job's lease.
const reasonStalled = "job stalled: worker stopped before finishing"

// Options configures a queue.
type Options struct {
	Name              string
	Prefix            string
	Attempts          int
	BackoffBase       time.Duration
	LockDuration      time.Duration
	CompletedMaxAge   time.Duration
	CompletedMaxCount int64
	FailedMaxAge      time.Duration
	FailedMaxCount    int64
}

// DefaultOptions returns the stock retry and retention policy.
func DefaultOptions() Options {
	return Options{
		Name:              "ai-blog",
		Prefix:            "blog-agent",
		Attempts:          2,
		BackoffBase:       2 * time.Second,
		LockDuration:      30 * time.Second,
		CompletedMaxAge:   time.Hour,
		CompletedMaxCount: 1000,
		FailedMaxAge:      24 * time.Hour,
		FailedMaxCount:    1000,
	}
}

// Status is the externally visible view of a job.
type Status struct {
	ID          string          `json:"id"`
	State       State           `json:"state"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Progress    int             `json:"progress,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// Terminal reports whether the job has finished.
func (s *Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

// Queue stores jobs in Redis.
//
// Popped ids move atomically from the wait list to the active list. A claimed
// job carries a lease that its worker renews; recoverStalled hands jobs whose
// lease expired back to the retry policy.
type Queue struct {
	rdb  *redis.Client
	opts Options
	now  func() time.Time

	mu        sync.Mutex
	unclaimed map[string]time.Time
}

// New creates a queue. Zero option fields take their defaults.
func New(rdb *redis.Client, opts Options) *Queue {
	def := DefaultOptions()
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = def.BackoffBase
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = def.LockDuration
	}
	if opts.CompletedMaxAge <= 0 {
		opts.CompletedMaxAge = def.CompletedMaxAge
	}
	if opts.CompletedMaxCount <= 0 {
		opts.CompletedMaxCount = def.CompletedMaxCount
	}
	if opts.FailedMaxAge <= 0 {
		opts.FailedMaxAge = def.FailedMaxAge
	}
	if opts.FailedMaxCount <= 0 {
		opts.FailedMaxCount = def.FailedMaxCount
	}
	return &Queue{rdb: rdb, opts: opts, now: time.Now, unclaimed: make(map[string]time.Time)}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.opts.Name }

func (q *Queue) key(suffix string) string {
	return q.opts.Prefix + ":" + q.opts.Name + ":" + suffix
}

func (q *Queue) jobKey(id string) string { return q.key("job:" + id) }

// Enqueue stores payload as a new queued job and returns its id without
// waiting for it to run.
func (q *Queue) Enqueue(ctx context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	id := uuid.NewString()
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			fieldPayload, data,
			fieldState, string(StateQueued),
			fieldAttempts, 0,
			fieldMaxAttempts, q.opts.Attempts,
			fieldProgress, 0,
			fieldCreatedAt, q.now().UnixMilli(),
		)
		pipe.LPush(ctx, q.key("wait"), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id, nil
}

// Status returns the current state of a job.
func (q *Queue) Status(ctx context.Context, id string) (*Status, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	s := &Status{
		ID:          id,
		State:       State(fields[fieldState]),
		Attempts:    atoi(fields[fieldAttempts]),
		MaxAttempts: atoi(fields[fieldMaxAttempts]),
		Reason:      fields[fieldReason],
		CreatedAt:   fromMillis(fields[fieldCreatedAt]),
	}
	switch s.State {
	case StateCompleted:
		if r := fields[fieldResult]; r != "" {
			s.Result = json.RawMessage(r)
		}
	case StateFailed:
	default:
		s.Progress = atoi(fields[fieldProgress])
		s.Reason = ""
	}
	if v := fields[fieldFinishedAt]; v != "" {
		t := fromMillis(v)
		s.FinishedAt = &t
	}
	return s, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// pop blocks up to timeout for the next job id and moves it to the active
// list. It returns "" on timeout.
func (q *Queue) pop(ctx context.Context, timeout time.Duration) (string, error) {
	id, err := q.rdb.BLMove(ctx, q.key("wait"), q.key("active"), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// promoteDue moves delayed jobs whose time has come back to the wait list.
// ZREM decides which consumer wins a job when several workers race.
func (q *Queue) promoteDue(ctx context.Context) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	promoted := 0
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, q.key("delayed"), id).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim delayed job %s: %w", id, err)
		}
		if removed != 1 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.key("wait"), id).Err(); err != nil {
			return promoted, fmt.Errorf("failed to requeue job %s: %w", id, err)
		}
		promoted++
	}
	return promoted, nil
}

// claim marks a job active and returns it with its attempt number.
func (q *Queue) claim(ctx context.Context, id string) (*Job, int, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, 0, ErrJobNotFound
	}

	attempt, err := q.rdb.HIncrBy(ctx, q.jobKey(id), fieldAttempts, 1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count attempt for job %s: %w", id, err)
	}
	now := q.now()
	err = q.rdb.HSet(ctx, q.jobKey(id),
		fieldState, string(StateActive),
		fieldStartedAt, now.UnixMilli(),
		fieldLeaseUntil, now.Add(q.opts.LockDuration).UnixMilli(),
	).Err()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to activate job %s: %w", id, err)
	}

	maxAttempts := atoi(fields[fieldMaxAttempts])
	if maxAttempts <= 0 {
		maxAttempts = q.opts.Attempts
	}
	job := &Job{ID: id, Payload: []byte(fields[fieldPayload]), Attempt: int(attempt), q: q}
	return job, maxAttempts, nil
}

// extendLease renews the lease of an active job.
func (q *Queue) extendLease(ctx context.Context, id string) error {
	until := q.now().Add(q.opts.LockDuration).UnixMilli()
	if err := q.rdb.HSet(ctx, q.jobKey(id), fieldLeaseUntil, until).Err(); err != nil {
		return fmt.Errorf("failed to extend lease of job %s: %w", id, err)
	}
	return nil
}

// recoverStalled returns jobs abandoned by a dead worker to the queue. A job
// whose lease expired counts as a failed attempt and follows the retry policy.
// An id that was popped but never claimed goes back to the wait list once it
// has been seen unclaimed for a whole lock duration. LREM decides which
// consumer recovers a job when several workers race.
func (q *Queue) recoverStalled(ctx context.Context) (int, error) {
	ids, err := q.rdb.LRange(ctx, q.key("active"), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read active jobs: %w", err)
	}

	now := q.now()
	present := make(map[string]bool, len(ids))
	recovered := 0
	for _, id := range ids {
		present[id] = true
		vals, err := q.rdb.HMGet(ctx, q.jobKey(id), fieldState, fieldLeaseUntil, fieldAttempts, fieldMaxAttempts).Result()
		if err != nil {
			return recovered, fmt.Errorf("failed to read job %s: %w", id, err)
		}
		if vals[0] == nil {
			// Removed by retention while still listed.
			if err := q.rdb.LRem(ctx, q.key("active"), 0, id).Err(); err != nil {
				return recovered, fmt.Errorf("failed to drop job %s: %w", id, err)
			}
			continue
		}

		lease, _ := vals[1].(string)
		if lease == "" {
			if !q.unclaimedLongerThanLock(id, now) {
				continue
			}
			ok, err := q.takeActive(ctx, id)
			if err != nil {
				return recovered, err
			}
			if !ok {
				continue
			}
			if err := q.rdb.LPush(ctx, q.key("wait"), id).Err(); err != nil {
				return recovered, fmt.Errorf("failed to requeue job %s: %w", id, err)
			}
			recovered++
			continue
		}

		if fromMillis(lease).After(now) {
			continue
		}
		ok, err := q.takeActive(ctx, id)
		if err != nil {
			return recovered, err
		}
		if !ok {
			continue
		}
		attempts, _ := vals[2].(string)
		maxAttempts, _ := vals[3].(string)
		if atoi(attempts) < atoi(maxAttempts) {
			err = q.retry(ctx, id, reasonStalled, q.backoff(atoi(attempts)))
		} else {
			err = q.fail(ctx, id, reasonStalled)
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}

	q.mu.Lock()
	for id := range q.unclaimed {
		if !present[id] {
			delete(q.unclaimed, id)
		}
	}
	q.mu.Unlock()
	return recovered, nil
}

// unclaimedLongerThanLock records the first sighting of an unclaimed id and
// reports whether it has stayed unclaimed for a lock duration since.
func (q *Queue) unclaimedLongerThanLock(id string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	first, seen := q.unclaimed[id]
	if !seen {
		q.unclaimed[id] = now
		return false
	}
	if now.Sub(first) < q.opts.LockDuration {
		return false
	}
	delete(q.unclaimed, id)
	return true
}

// takeActive removes id from the active list and reports whether this caller
// removed it.
func (q *Queue) takeActive(ctx context.Context, id string) (bool, error) {
	removed, err := q.rdb.LRem(ctx, q.key("active"), 1, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to take job %s: %w", id, err)
	}
	return removed == 1, nil
}

func (q *Queue) complete(ctx context.Context, id string, result []byte) error {
	now := q.now()
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			fieldState, string(StateCompleted),
			fieldResult, result,
			fieldProgress, 100,
			fieldFinishedAt, now.UnixMilli(),
		)
		pipe.HDel(ctx, q.jobKey(id), fieldReason, fieldLeaseUntil)
		pipe.LRem(ctx, q.key("active"), 0, id)
		pipe.ZAdd(ctx, q.key("completed"), redis.Z{Score: float64(now.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return q.trim(ctx, q.key("completed"), q.opts.CompletedMaxAge, q.opts.CompletedMaxCount)
}

// retry records the failure and schedules the job after delay.
func (q *Queue) retry(ctx context.Context, id, reason string, delay time.Duration) error {
	readyAt := q.now().Add(delay)
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			fieldState, string(StateQueued),
			fieldReason, reason,
		)
		pipe.HDel(ctx, q.jobKey(id), fieldLeaseUntil)
		pipe.LRem(ctx, q.key("active"), 0, id)
		pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: float64(readyAt.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retry for job %s: %w", id, err)
	}
	return nil
}

func (q *Queue) fail(ctx context.Context, id, reason string) error {
	now := q.now()
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			fieldState, string(StateFailed),
			fieldReason, reason,
			fieldFinishedAt, now.UnixMilli(),
		)
		pipe.HDel(ctx, q.jobKey(id), fieldLeaseUntil)
		pipe.LRem(ctx, q.key("active"), 0, id)
		pipe.ZAdd(ctx, q.key("failed"), redis.Z{Score: float64(now.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	return q.trim(ctx, q.key("failed"), q.opts.FailedMaxAge, q.opts.FailedMaxCount)
}

// trim removes finished jobs older than maxAge and the oldest beyond maxCount.
func (q *Queue) trim(ctx context.Context, set string, maxAge time.Duration, maxCount int64) error {
	cutoff := q.now().Add(-maxAge).UnixMilli()
	expired, err := q.rdb.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read expired jobs: %w", err)
	}
	if err := q.remove(ctx, set, expired); err != nil {
		return err
	}

	count, err := q.rdb.ZCard(ctx, set).Result()
	if err != nil {
		return fmt.Errorf("failed to count finished jobs: %w", err)
	}
	if count <= maxCount {
		return nil
	}
	oldest, err := q.rdb.ZRange(ctx, set, 0, count-maxCount-1).Result()
	if err != nil {
		return fmt.Errorf("failed to read oldest jobs: %w", err)
	}
	return q.remove(ctx, set, oldest)
}

func (q *Queue) remove(ctx context.Context, set string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
			pipe.Del(ctx, q.jobKey(id))
		}
		pipe.ZRem(ctx, set, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove finished jobs: %w", err)
	}
	return nil
}

// backoff returns base * 2^(attempt-1).
func (q *Queue) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return q.opts.BackoffBase << (attempt - 1)
}

// Job is a claimed job handed to a handler.
type Job struct {
	ID      string
	Payload []byte
	Attempt int
	q       *Queue
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode job %s payload: %w", j.ID, err)
	}
	return nil
}

// UpdateProgress records a coarse 0-100 progress value.
func (j *Job) UpdateProgress(ctx context.Context, percent int) error {
	if j.q == nil {
		return nil
	}
	percent = max(0, min(100, percent))
	return j.q.rdb.HSet(ctx, j.q.jobKey(j.ID), fieldProgress, percent).Err()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func fromMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
