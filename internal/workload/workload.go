// Package workload generates synthetic cache operation streams.
package workload

import (
	"errors"
	"fmt"
	"math/rand"
)

// Op is a cache operation kind.
type Op uint8

const (
	OpGet Op = iota
	OpSet
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Distribution selects how keys are drawn.
type Distribution string

const (
	Uniform Distribution = "uniform"
	Zipf    Distribution = "zipf"
)

// ErrInvalidConfig is wrapped by every validation error from [New].
var ErrInvalidConfig = errors.New("invalid workload config")

// Config describes a key stream.
type Config struct {
	Keys         int
	ReadRatio    float64
	Distribution Distribution
	ZipfS        float64 // must be > 1 for Zipf
	Seed         int64
}

// Generator yields operations. It is not safe for concurrent use; give each worker its own.
type Generator struct {
	rnd       *rand.Rand
	zipf      *rand.Zipf
	keys      int
	readRatio float64
}

// New validates cfg and returns a generator. Equal configs produce equal streams.
func New(cfg Config) (*Generator, error) {
	if cfg.Keys < 1 {
		return nil, fmt.Errorf("%w: keys must be positive, got %d", ErrInvalidConfig, cfg.Keys)
	}
	if cfg.ReadRatio < 0 || cfg.ReadRatio > 1 {
		return nil, fmt.Errorf("%w: read ratio must be within [0, 1], got %v", ErrInvalidConfig, cfg.ReadRatio)
	}

	g := &Generator{
		rnd:       rand.New(rand.NewSource(cfg.Seed)),
		keys:      cfg.Keys,
		readRatio: cfg.ReadRatio,
	}

	switch cfg.Distribution {
	case Uniform, "":
	case Zipf:
		if cfg.ZipfS <= 1 {
			return nil, fmt.Errorf("%w: zipf s must be greater than 1, got %v", ErrInvalidConfig, cfg.ZipfS)
		}
		g.zipf = rand.NewZipf(g.rnd, cfg.ZipfS, 1, uint64(cfg.Keys-1))
	default:
		return nil, fmt.Errorf("%w: unknown distribution %q", ErrInvalidConfig, cfg.Distribution)
	}
	return g, nil
}

// Next returns the next operation and key index in [0, Keys).
func (g *Generator) Next() (Op, int) {
	op := OpSet
	if g.rnd.Float64() < g.readRatio {
		op = OpGet
	}

	if g.zipf != nil {
		return op, int(g.zipf.Uint64())
	}
	return op, g.rnd.Intn(g.keys)
}

// Key formats a key index the way the simulator stores it.
func Key(i int) string {
	return fmt.Sprintf("k%06d", i)
}
