package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/d0ngw/timeline-counter/cache"
	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/fields"
	"github.com/d0ngw/timeline-counter/item"
)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithRenderer re-renders the item html on every durable write
func WithRenderer(r fields.Renderer) Option {
	return func(p *Coordinator) {
		p.renderer = r
	}
}

// WithMetrics records the operations to m
func WithMetrics(m *Metrics) Option {
	return func(p *Coordinator) {
		p.metrics = m
	}
}

// Coordinator applies operations to the counters. It holds no state of its
// own and is safe for concurrent use.
type Coordinator struct {
	cache    cache.CoordinationCache
	store    item.Store
	conf     *RetryConfig
	renderer fields.Renderer
	metrics  *Metrics
}

// NewCoordinator creates the coordinator, a nil conf uses the defaults
func NewCoordinator(cc cache.CoordinationCache, store item.Store, conf *RetryConfig, opts ...Option) (*Coordinator, error) {
	if c.HasNil(cc, store) {
		return nil, fmt.Errorf("coordination cache and item store must be set")
	}
	if conf == nil {
		conf = &RetryConfig{}
	}
	if err := conf.Parse(); err != nil {
		return nil, err
	}
	p := &Coordinator{cache: cc, store: store, conf: conf}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Apply parses opName and applies it to the counter of itemID, it returns the
// new counter value. An unknown opName fails before anything is read.
func (p *Coordinator) Apply(ctx context.Context, itemID string, opName string) (int64, error) {
	op, err := ParseOperation(opName)
	if err != nil {
		p.metrics.RecordOperation(ctx, opUnknown, outcomeUnsupported, 0, 0)
		return 0, err
	}
	return p.ApplyOperation(ctx, itemID, op)
}

// ApplyOperation applies op to the counter of itemID.
//
// The new value is swapped into the coordination cache first, then written to
// the item store. A *PersistError means the swap succeeded and only the
// durable write failed.
func (p *Coordinator) ApplyOperation(ctx context.Context, itemID string, op Operation) (int64, error) {
	if itemID == "" {
		return 0, fmt.Errorf("empty item id")
	}
	start := time.Now()
	value, attempts, err := p.swap(ctx, itemID, op)
	if err != nil {
		p.metrics.RecordOperation(ctx, op, outcomeOf(err), attempts, time.Since(start))
		return 0, err
	}
	if err = p.persist(ctx, itemID, value); err != nil {
		c.Errorf("persist counter %s=%d after %s fail,err:%v", itemID, value, op, err)
		p.metrics.RecordOperation(ctx, op, outcomePersistFailed, attempts, time.Since(start))
		return value, &PersistError{ItemID: itemID, Value: value, Applied: true, Err: err}
	}
	p.metrics.RecordOperation(ctx, op, outcomeOK, attempts, time.Since(start))
	if c.DebugEnabled() {
		c.Debugf("counter %s %s -> %d,attempts:%d", itemID, op, value, attempts)
	}
	return value, nil
}

// swap runs the bounded compare-and-swap loop, it returns the swapped value
// and the attempts used
func (p *Coordinator) swap(ctx context.Context, itemID string, op Operation) (int64, int, error) {
	loopCtx, cancel := context.WithTimeout(ctx, p.conf.TimeoutDuration())
	defer cancel()

	if err := p.seed(loopCtx, itemID); err != nil {
		return 0, 0, p.loopErr(ctx, loopCtx, itemID, 0, err)
	}

	b := p.conf.newBackOff()
	var lastErr error
	attempt := 0
	for attempt < p.conf.MaxAttempts {
		if attempt > 0 && !sleep(loopCtx, b.NextBackOff()) {
			break
		}
		attempt++
		value, done, err := p.attempt(loopCtx, itemID, op)
		if err != nil {
			if !c.IsRetryable(err) || loopCtx.Err() != nil {
				return 0, attempt, p.loopErr(ctx, loopCtx, itemID, attempt, err)
			}
			c.Warnf("counter %s %s attempt %d fail,err:%v", itemID, op, attempt, err)
			lastErr = err
			continue
		}
		if done {
			return value, attempt, nil
		}
		lastErr = nil
	}
	return 0, attempt, p.loopErr(ctx, loopCtx, itemID, attempt, lastErr)
}

// loopErr maps the error that ended the loop. The deadline of the loop and a
// used up budget both give ErrContention, unless the caller canceled or the
// last attempt failed in transport.
func (p *Coordinator) loopErr(ctx, loopCtx context.Context, itemID string, attempts int, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if !c.IsRetryable(err) || loopCtx.Err() == nil {
			return err
		}
	}
	return fmt.Errorf("%w: item %s not swapped after %d attempts", ErrContention, itemID, attempts)
}

// seed initializes the absent cache entry from the store. Losing the race to
// another seeder is fine, the loop reads the entry again.
func (p *Coordinator) seed(ctx context.Context, itemID string) error {
	_, _, ok, err := p.cache.GetWithVersion(ctx, itemID)
	if err != nil {
		if c.IsRetryable(err) {
			c.Warnf("get counter %s from cache fail,err:%v", itemID, err)
			return nil
		}
		return err
	}
	if ok {
		return nil
	}
	num, err := p.load(ctx, itemID)
	if err != nil {
		if c.IsRetryable(err) {
			c.Warnf("load counter %s fail,err:%v", itemID, err)
			return nil
		}
		return err
	}
	set, err := p.cache.SetIfAbsent(ctx, itemID, num)
	if err != nil {
		if c.IsRetryable(err) {
			c.Warnf("seed counter %s fail,err:%v", itemID, err)
			return nil
		}
		return err
	}
	if c.DebugEnabled() {
		c.Debugf("seed counter %s=%d,set:%v", itemID, num, set)
	}
	return nil
}

// attempt is one pass of the loop, done reports whether the value was swapped in
func (p *Coordinator) attempt(ctx context.Context, itemID string, op Operation) (value int64, done bool, err error) {
	current, version, ok, err := p.cache.GetWithVersion(ctx, itemID)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		// 被淘汰了,以存储中的值为准,没有版本保护
		num, err := p.load(ctx, itemID)
		if err != nil {
			return 0, false, err
		}
		value = op.Apply(num)
		set, err := p.cache.SetIfAbsent(ctx, itemID, value)
		if err != nil || !set {
			return 0, false, err
		}
		c.Warnf("counter %s was evicted,%s applied on stored value %d without version guard", itemID, op, num)
		p.metrics.RecordUnguardedApply(ctx, op)
		return value, true, nil
	}
	value = op.Apply(current)
	swapped, err := p.cache.CompareAndSwap(ctx, itemID, version, value)
	if err != nil {
		return 0, false, err
	}
	return value, swapped, nil
}

// load reads the stored counter with the NumOrZero policy
func (p *Coordinator) load(ctx context.Context, itemID string) (int64, error) {
	it, err := p.store.Get(ctx, itemID)
	if err != nil {
		return 0, err
	}
	num, fallback, err := fields.ItemNum(it)
	if err != nil {
		c.Warnf("item %s has malformed payload,counter reads as 0,err:%v", itemID, err)
	} else if fallback {
		c.Infof("item %s has no integer num,counter reads as 0", itemID)
	}
	return num, nil
}

// persist writes the counter to the stored item with bounded retries. Every
// try writes the cache value read after the item, so a write that lands late
// never moves the store behind the cache. value is written only when the
// entry is gone. The store must reject stale item versions.
func (p *Coordinator) persist(ctx context.Context, itemID string, value int64) error {
	operation := func() (struct{}, error) {
		it, err := p.store.Get(ctx, itemID)
		if err != nil {
			return struct{}{}, retryable(err)
		}
		num := value
		cached, _, ok, err := p.cache.GetWithVersion(ctx, itemID)
		if err != nil {
			return struct{}{}, retryable(err)
		}
		if ok {
			num = cached
		}
		p.writeNum(it, num)
		if err := p.store.Update(ctx, itemID, it); err != nil {
			c.Warnf("update item %s=%d fail,err:%v", itemID, num, err)
			return struct{}{}, retryable(err)
		}
		return struct{}{}, nil
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.conf.newBackOff()),
		backoff.WithMaxTries(uint(p.conf.PersistAttempts)))
	return err
}

// writeNum stores value as the num field of it and strips the notification
func (p *Coordinator) writeNum(it *item.Item, value int64) {
	writeFields(it, fields.FieldSet{fields.KeyNum: value}, p.renderer)
	it.Notification = nil
}

// writeFields merges set into the fields of it and refreshes the text. A
// malformed payload is replaced by set, a failed render keeps the old html.
func writeFields(it *item.Item, set fields.FieldSet, r fields.Renderer) {
	err := fields.SetMultiple(it, set, r)
	if errors.Is(err, fields.ErrMalformedPayload) {
		c.Warnf("item %s has malformed payload %q,overwrite it,err:%v", it.ID, it.SourceItemID, err)
		it.SourceItemID = ""
		err = fields.SetMultiple(it, set, r)
	}
	if err != nil {
		c.Warnf("render item %s fail,keep the html,err:%v", it.ID, err)
		if err = fields.SetMultiple(it, set, nil); err != nil {
			c.Errorf("set fields of item %s fail,err:%v", it.ID, err)
		}
	}
	refreshText(it)
}

// Get returns the current counter of itemID: the cache entry when present,
// the stored value otherwise. The cache is not seeded.
func (p *Coordinator) Get(ctx context.Context, itemID string) (int64, error) {
	value, _, ok, err := p.cache.GetWithVersion(ctx, itemID)
	if err == nil && ok {
		return value, nil
	}
	if err != nil {
		c.Warnf("get counter %s from cache fail,read the store,err:%v", itemID, err)
	}
	return p.load(ctx, itemID)
}

// Invalidate drops the cache entry of itemID, the next operation seeds it from the store
func (p *Coordinator) Invalidate(ctx context.Context, itemID string) error {
	return p.cache.Delete(ctx, itemID)
}

// refreshText writes "name: num" as the item text when the counter has a name
func refreshText(it *item.Item) {
	fs, err := fields.FromItem(it)
	if err != nil {
		return
	}
	name := fields.Name(fs)
	if name == "" {
		return
	}
	num, _ := fields.NumOrZero(fs)
	it.Text = name + ": " + strconv.FormatInt(num, 10)
}

func retryable(err error) error {
	if c.IsRetryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

// sleep waits d, it reports false when ctx is done first
func sleep(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrContention):
		return outcomeContention
	case errors.Is(err, c.ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}
