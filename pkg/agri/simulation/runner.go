package simulation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"agri-assistant-be/pkg/store"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrParameterEncoding signals that the simulation input could not be
// canonicalized into a fingerprint. The cache is left untouched.
var ErrParameterEncoding = errors.New("simulation: cannot encode parameters")

// CacheCapacity bounds the memoized results; least-recently-used
// entries are evicted on overflow.
const CacheCapacity = 256

// DefaultDelay emulates the latency of a real crop-simulation model
// call. It only applies to cache misses.
const DefaultDelay = 300 * time.Millisecond

// paramFields are the only inputs the model recognizes, in canonical order.
var paramFields = []string{
	store.FieldCrop,
	store.FieldRegion,
	store.FieldSeason,
	store.FieldSoil,
	store.FieldWater,
	store.FieldPlantingMethod,
}

// Result is the fixed-shape output of one simulation run.
type Result struct {
	SimID          string `json:"sim_id"`
	YieldKgHa      int    `json:"yield_kg_ha"`
	PlantingDate   string `json:"planting_date"`
	MaturityDate   string `json:"maturity_date"`
	IrrigationMm   int    `json:"irrigation_mm"`
	RatoonPossible bool   `json:"ratoon_possible"`
	Notes          string `json:"notes"`
}

// Outcome is the tagged result threaded into synthesis: either a
// completed simulation or an explicit skip with its reason.
type Outcome struct {
	Result  *Result
	Skipped bool
	Reason  string
}

// Simulated wraps a completed run.
func Simulated(r *Result) Outcome {
	return Outcome{Result: r}
}

// SkippedOutcome marks the stage as bypassed.
func SkippedOutcome(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

// Runner stands in for a crop-simulation model (DSSAT, APSIM). Results
// are memoized by the canonical fingerprint of the input parameters, so
// each distinct parameter set is computed at most once.
type Runner struct {
	cache *lru.Cache[string, *Result]
	group singleflight.Group
	delay time.Duration

	hits     atomic.Int64
	computes atomic.Int64
}

func NewRunner(delay time.Duration) *Runner {
	// Capacity is a compile-time constant; lru.New only fails on size <= 0
	cache, err := lru.New[string, *Result](CacheCapacity)
	if err != nil {
		panic(err)
	}
	return &Runner{cache: cache, delay: delay}
}

// Run executes the model for the given context, drawing only the six
// recognized fields. Identical parameter sets always map to the same
// fingerprint regardless of map ordering.
func (r *Runner) Run(ctx store.Context) (*Result, error) {
	fp, err := Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	if res, ok := r.cache.Get(fp); ok {
		r.hits.Add(1)
		return res, nil
	}

	// singleflight collapses concurrent misses for the same fingerprint
	// into one computation
	v, err, _ := r.group.Do(fp, func() (interface{}, error) {
		if res, ok := r.cache.Get(fp); ok {
			r.hits.Add(1)
			return res, nil
		}
		res := r.compute(fp)
		r.cache.Add(fp, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// compute is the model stand-in: deterministic in the fingerprint, with
// an artificial delay emulating a costly external call.
func (r *Runner) compute(fp string) *Result {
	r.computes.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return &Result{
		SimID:          fp[:8],
		YieldKgHa:      7800,
		PlantingDate:   "auto",
		MaturityDate:   "auto+120d",
		IrrigationMm:   900,
		RatoonPossible: true,
		Notes:          "Stub simulation. Plug a real crop model into pkg/agri/simulation.",
	}
}

// Stats reports cache hits and distinct computations performed.
func (r *Runner) Stats() (hits, computes int64) {
	return r.hits.Load(), r.computes.Load()
}

// Fingerprint canonicalizes the recognized parameters into a stable,
// key-sorted JSON serialization and hashes it.
func Fingerprint(ctx store.Context) (string, error) {
	params := make(map[string]string, len(paramFields))
	for _, f := range paramFields {
		params[f] = ctx[f]
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrParameterEncoding, err)
		}
		vb, err := json.Marshal(params[k])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrParameterEncoding, err)
		}
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:]), nil
}
