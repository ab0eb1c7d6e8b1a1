package resample

import (
	"runtime"

	"github.com/datatrails/go-datatrails-common/logger"
)

const (
	DefaultProbeGrid = 64
	MaxProbeGrid     = 1024
)

type Options struct {
	Log logger.Logger
	// Depth is the level of the leaf pages.
	Depth int
	// ProbeGrid is the side of the grid of probe directions tested against
	// the source before a page is subdivided. It must be a power of two.
	ProbeGrid int
	// Workers bounds the goroutines computing the rows of a leaf page.
	Workers int
	// Dilate grows colour into the uncovered samples of partially covered
	// pages. It has no effect unless a coverage channel is written.
	Dilate bool
}

type Option func(*Options)

func WithLogger(log logger.Logger) Option {
	return func(opts *Options) {
		opts.Log = log
	}
}

func WithDepth(depth int) Option {
	return func(opts *Options) {
		opts.Depth = depth
	}
}

func WithProbeGrid(n int) Option {
	return func(opts *Options) {
		opts.ProbeGrid = n
	}
}

func WithWorkers(n int) Option {
	return func(opts *Options) {
		opts.Workers = n
	}
}

func WithDilation(dilate bool) Option {
	return func(opts *Options) {
		opts.Dilate = dilate
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ProbeGrid: DefaultProbeGrid,
		Workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Log == nil {
		options.Log = logger.Sugar.WithServiceName("resample")
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	return options
}
