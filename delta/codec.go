package delta

import (
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/drpcorg/decksync/game"
	"github.com/drpcorg/decksync/utils"
)

// DefaultThreshold is the highest delta/snapshot size ratio still
// worth shipping as a delta.
const DefaultThreshold = 0.3

// Delta is an RFC 6902 patch between two revisions of one session.
// Ops is the raw patch array; applying it to the serialized base
// snapshot must reproduce the target snapshot byte-exactly.
type Delta struct {
	BaseRevision   uint64          `json:"baseRevision"`
	TargetRevision uint64          `json:"targetRevision"`
	Ops            json.RawMessage `json:"ops"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Codec struct {
	Threshold float64
}

func NewCodec(threshold float64) *Codec {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Codec{Threshold: threshold}
}

// Create diffs two snapshots of the same session. The diff runs over
// the full serialized form, bookkeeping included, so applying the
// result reproduces the target exactly. Factorization folds value
// moves into RFC 6902 move/copy operations.
func (c *Codec) Create(base, target *game.State) (Delta, error) {
	baseRaw, err := base.Encode()
	if err != nil {
		return Delta{}, err
	}
	targetRaw, err := target.Encode()
	if err != nil {
		return Delta{}, err
	}
	patch, err := jsondiff.CompareJSON(baseRaw, targetRaw, jsondiff.Factorize())
	if err != nil {
		return Delta{}, fmt.Errorf("diffing revisions %d..%d: %w", base.Revision, target.Revision, err)
	}
	ops := json.RawMessage("[]")
	if len(patch) > 0 {
		if ops, err = json.Marshal(patch); err != nil {
			return Delta{}, err
		}
	}
	return Delta{
		BaseRevision:   base.Revision,
		TargetRevision: target.Revision,
		Ops:            ops,
		CreatedAt:      time.Now(),
	}, nil
}

// Apply patches the base snapshot and verifies the result. The base
// revision must match exactly; a diverged or corrupted patch surfaces
// as an error, never as a silently wrong state.
func (c *Codec) Apply(base *game.State, d Delta) (*game.State, error) {
	if base.Revision != d.BaseRevision {
		return nil, fmt.Errorf("%w: delta expects base %d, state is at %d",
			decksync_errors.ErrVersionMismatch, d.BaseRevision, base.Revision)
	}
	baseRaw, err := base.Encode()
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(d.Ops)
	if err != nil {
		return nil, fmt.Errorf("%w: bad patch: %s", decksync_errors.ErrValidation, err)
	}
	targetRaw, err := patch.Apply(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: patch failed: %s", decksync_errors.ErrIntegrity, err)
	}
	target, err := game.DecodeState(targetRaw)
	if err != nil {
		return nil, err
	}
	if target.Revision != d.TargetRevision {
		return nil, fmt.Errorf("%w: patched state is at %d, delta promised %d",
			decksync_errors.ErrIntegrity, target.Revision, d.TargetRevision)
	}
	if err = target.VerifyChecksum(); err != nil {
		return nil, err
	}
	return target, nil
}

// Merge combines a batch of deltas into one spanning patch. The batch
// may arrive in any order; once ordered by base revision each delta
// must start where the previous one ended. RFC 6902 patches compose by
// concatenation, on top of that consecutive rewrites of the same path
// collapse into the last one.
func (c *Codec) Merge(deltas []Delta) (Delta, error) {
	if len(deltas) == 0 {
		return Delta{}, fmt.Errorf("%w: nothing to merge", decksync_errors.ErrValidation)
	}
	if len(deltas) == 1 {
		return deltas[0], nil
	}

	byBase := make(map[uint64]Delta, len(deltas))
	order := utils.Heap[uint64]{}
	for _, d := range deltas {
		if _, dup := byBase[d.BaseRevision]; dup {
			return Delta{}, fmt.Errorf("%w: two deltas based on revision %d",
				decksync_errors.ErrNotContiguous, d.BaseRevision)
		}
		byBase[d.BaseRevision] = d
		order.Push(d.BaseRevision)
	}

	var ops []json.RawMessage
	first := byBase[order.Pop()]
	if err := appendOps(&ops, first.Ops); err != nil {
		return Delta{}, err
	}
	last := first
	for order.Len() > 0 {
		next := byBase[order.Pop()]
		if next.BaseRevision != last.TargetRevision {
			return Delta{}, fmt.Errorf("%w: %d..%d does not continue %d..%d",
				decksync_errors.ErrNotContiguous,
				next.BaseRevision, next.TargetRevision,
				last.BaseRevision, last.TargetRevision)
		}
		if err := appendOps(&ops, next.Ops); err != nil {
			return Delta{}, err
		}
		last = next
	}

	merged, err := json.Marshal(coalesce(ops))
	if err != nil {
		return Delta{}, err
	}
	return Delta{
		BaseRevision:   first.BaseRevision,
		TargetRevision: last.TargetRevision,
		Ops:            merged,
		CreatedAt:      time.Now(),
	}, nil
}

func appendOps(into *[]json.RawMessage, ops json.RawMessage) error {
	if len(ops) == 0 {
		return nil
	}
	var batch []json.RawMessage
	if err := json.Unmarshal(ops, &batch); err != nil {
		return fmt.Errorf("%w: bad patch: %s", decksync_errors.ErrValidation, err)
	}
	*into = append(*into, batch...)
	return nil
}

type opProbe struct {
	Op   string `json:"op"`
	Path string `json:"path"`
}

// coalesce folds an op that is immediately overwritten by a replace of
// the same path into one: replace-then-replace keeps the later op,
// add-then-replace becomes an add carrying the later value. Anything
// less obviously redundant is left alone; correctness beats compression
// here.
func coalesce(ops []json.RawMessage) []json.RawMessage {
	if len(ops) < 2 {
		if ops == nil {
			return []json.RawMessage{}
		}
		return ops
	}
	out := make([]json.RawMessage, 0, len(ops))
	var last opProbe // describes the op currently at the tail of out
	for _, raw := range ops {
		var cur opProbe
		if err := json.Unmarshal(raw, &cur); err != nil {
			cur = opProbe{}
		}
		if len(out) > 0 && cur.Op == "replace" && cur.Path == last.Path {
			// last keeps describing the tail: its op and path survive
			// the fold, only the value moves forward.
			if last.Op == "replace" {
				out[len(out)-1] = raw
				continue
			}
			if last.Op == "add" {
				if merged, ok := retag(raw, "add"); ok {
					out[len(out)-1] = merged
					continue
				}
			}
		}
		out = append(out, raw)
		last = cur
	}
	return out
}

// retag rewrites the op field of a single patch op.
func retag(raw json.RawMessage, op string) (json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	fields["op"] = json.RawMessage(`"` + op + `"`)
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return merged, true
}

// Ratio measures the encoded delta against the encoded snapshot it
// replaces. Degenerate inputs count as 1, i.e. not worth it.
func (c *Codec) Ratio(full *game.State, d Delta) float64 {
	fullRaw, err := full.Encode()
	if err != nil || len(fullRaw) == 0 {
		return 1
	}
	deltaRaw, err := json.Marshal(d)
	if err != nil {
		return 1
	}
	return float64(len(deltaRaw)) / float64(len(fullRaw))
}

// Prefer reports whether the delta is small enough to ship instead of
// the full snapshot.
func (c *Codec) Prefer(full *game.State, d Delta) bool {
	return c.Ratio(full, d) <= c.Threshold
}
