package vclock

import (
	"slices"
	"strconv"
	"strings"
)

// VV is a version vector, max counter seen from each known client.
type VV map[string]uint64

func New() VV {
	return make(VV)
}

func (vv VV) Get(src string) (pro uint64) {
	return vv[src]
}

// Set the progress for the specified source
func (vv VV) Set(src string, pro uint64) {
	vv[src] = pro
}

// Put the src-pro pair to the VV, returns whether it was
// unseen (i.e. made any difference)
func (vv VV) Put(src string, pro uint64) bool {
	pre, ok := vv[src]
	if ok && pre >= pro {
		return false
	}
	vv[src] = pro
	return true
}

// Tick advances the counter for src and returns the new value.
// An unknown src starts at zero, so its first tick yields 1.
func (vv VV) Tick(src string) uint64 {
	vv[src]++
	return vv[src]
}

// Merge folds b into vv keeping the element-wise maximum.
func (vv VV) Merge(b VV) {
	for src, pro := range b {
		if pro > vv[src] {
			vv[src] = pro
		}
	}
}

func (vv VV) Clone() VV {
	ret := make(VV, len(vv))
	for src, pro := range vv {
		ret[src] = pro
	}
	return ret
}

// Whether this VV is ahead of another one on any entry
func (vv VV) ProgressedOver(b VV) bool {
	for src, pro := range vv {
		if pro > b[src] {
			return true
		}
	}
	return false
}

// Whether this VV covers every entry of bb
func (vv VV) Seen(bb VV) bool {
	for src, pro := range bb {
		if pro > vv[src] {
			return false
		}
	}
	return true
}

// Ordering is the outcome of a partial-order comparison of two VVs.
type Ordering int

const (
	Equal Ordering = iota
	Before
	After
	Concurrent
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "concurrent"
	}
}

// Compare orders vv against b. Entries absent from a vector count as
// zero, so {a:1} and {a:1, b:0} compare Equal.
func (vv VV) Compare(b VV) Ordering {
	ahead, behind := false, false
	for src, pro := range vv {
		bpro := b[src]
		if pro > bpro {
			ahead = true
		} else if pro < bpro {
			behind = true
		}
	}
	for src, bpro := range b {
		if _, ok := vv[src]; !ok && bpro > 0 {
			behind = true
		}
	}
	switch {
	case ahead && behind:
		return Concurrent
	case ahead:
		return After
	case behind:
		return Before
	default:
		return Equal
	}
}

func (vv VV) sources() []string {
	srcs := make([]string, 0, len(vv))
	for src := range vv {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)
	return srcs
}

func (vv VV) String() string {
	srcs := vv.sources()
	var b strings.Builder
	for i, src := range srcs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(src)
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(vv[src], 10))
	}
	return b.String()
}

func VVFromString(vvs string) (vv VV) {
	vv = make(VV)
	if vvs == "" {
		return
	}
	for _, pair := range strings.Split(vvs, ",") {
		src, pros, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		pro, err := strconv.ParseUint(pros, 10, 64)
		if err != nil {
			continue
		}
		vv.Put(src, pro)
	}
	return
}
