package engine

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/moontrade/orderflow/logger"
	"github.com/moontrade/orderflow/order"
)

type BatchResult struct {
	Inserted int
	Updated  int
	Rejected int
	// Revision after the batch. Unchanged when nothing was applied.
	Revision uint64
}

func (r BatchResult) Applied() bool {
	return r.Inserted+r.Updated > 0
}

// Apply reconciles a batch, a JSON array of order objects (a lone object is
// a batch of one), against the current state. New identities are appended,
// known identities are merged in place. The revision advances once per
// batch that changed anything, and subscribers are notified after the
// write lock is released.
func (e *Engine) Apply(batch []byte) (BatchResult, error) {
	if !gjson.ValidBytes(batch) {
		return BatchResult{Revision: e.Revision()}, ErrMalformedBatch
	}
	parsed := gjson.ParseBytes(batch)
	if !parsed.IsArray() && !parsed.IsObject() {
		return BatchResult{Revision: e.Revision()}, ErrMalformedBatch
	}

	e.mu.Lock()
	var (
		result BatchResult
		err    error
	)
	apply := func(_, record gjson.Result) bool {
		err = e.applyRecord(record, &result)
		return err == nil
	}
	if parsed.IsObject() {
		apply(gjson.Result{}, parsed)
	} else {
		parsed.ForEach(apply)
	}
	if result.Applied() {
		e.revision++
		if e.hasFiltered {
			e.filtered, e.hasFiltered = e.filterLocked(e.criteria)
		}
	}
	result.Revision = e.revision
	snap := Snapshot{Revision: e.revision, Count: e.store.Len(), e: e}
	e.mu.Unlock()

	e.metrics.BatchApplied(result, snap.Count)
	if result.Applied() {
		logger.Debug("inserted", result.Inserted, "updated", result.Updated,
			"rejected", result.Rejected, "revision", result.Revision, "batch applied")
		e.subs.publish(snap)
	}
	return result, err
}

func (e *Engine) applyRecord(record gjson.Result, result *BatchResult) error {
	if !record.IsObject() {
		result.Rejected++
		logger.Debug("record", record.Raw, "rejected non-object record")
		return nil
	}
	id := record.Get(order.FieldID)
	if id.Type != gjson.String || id.Str == "" {
		result.Rejected++
		logger.Debug("record", record.Raw, "rejected record without id")
		return nil
	}
	raw := []byte(record.Raw)

	pos, ok := e.position(id.Str)
	if !ok {
		o, err := order.Decode(raw)
		if err != nil {
			result.Rejected++
			logger.Debug(err, "id", id.Str, "rejected malformed record")
			return nil
		}
		// A repeated "id" key must not split the identity map from the record.
		o.ID = id.Str
		pos = e.store.Append(o)
		e.ids.Set(id.Str, pos)
		e.prices.Put(o.Price, pos)
		e.statuses.Put(string(o.Status), pos)
		result.Inserted++
		return nil
	}

	cur, ok := e.store.Get(pos)
	if !ok {
		return fmt.Errorf("%w: id %q maps to position %d of %d", ErrInvariant, id.Str, pos, e.store.Len())
	}
	prevPrice, prevStatus := cur.Price, cur.Status
	if err := cur.Merge(raw); err != nil {
		result.Rejected++
		logger.Debug(err, "id", id.Str, "rejected malformed update")
		return nil
	}
	cur.ID = id.Str
	if err := e.store.Set(pos, cur); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	// Buckets of the previous values keep pos. Filtering re-verifies
	// candidates against the stored record.
	if cur.Price != prevPrice {
		e.prices.Put(cur.Price, pos)
	}
	if cur.Status != prevStatus {
		e.statuses.Put(string(cur.Status), pos)
	}
	result.Updated++
	return nil
}
