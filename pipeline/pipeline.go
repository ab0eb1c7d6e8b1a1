// Package pipeline drives the pyramid build over files: conversion of a batch
// of projected images, border stitching, repeated mipmap passes, finishing and
// point queries.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"

	"github.com/forestrie/go-cubetiles/border"
	"github.com/forestrie/go-cubetiles/imagesrc"
	"github.com/forestrie/go-cubetiles/lookup"
	"github.com/forestrie/go-cubetiles/mipmap"
	"github.com/forestrie/go-cubetiles/resample"
	"github.com/forestrie/go-cubetiles/tilestore"
)

var (
	ErrPassLimit = errors.New("mipmap did not converge within the pass limit")
	ErrQuery     = errors.New("a query line must hold a longitude and a latitude")
)

// Failure records an input that could not be converted.
type Failure struct {
	Input string
	Err   error
}

// Report summarizes a batch. A failed input never stops the batch.
type Report struct {
	Outputs  []string
	Results  []resample.Result
	Failures []Failure
}

// Err joins the failures, or is nil if every input converted.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Input, f.Err))
	}
	return errors.Join(errs...)
}

// SourceID derives a stable id for an input file from its absolute path.
func SourceID(path string) uuid.UUID {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path)))
}

// Convert resamples each configured input into its own store.
func Convert(log logger.Logger, cfg Config) (Report, error) {
	var report Report
	if err := cfg.Validate(); err != nil {
		return report, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return report, err
	}
	for _, in := range cfg.Inputs {
		res, err := convertOne(log, cfg, in)
		if err != nil {
			log.Infof("convert: %s failed: %v", in.Path, err)
			report.Failures = append(report.Failures, Failure{Input: in.Path, Err: err})
			continue
		}
		log.Infof("convert: %s -> %s, %d pages, %d hits", in.Path, in.Output, res.Pages, res.Hits)
		report.Outputs = append(report.Outputs, in.Output)
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func convertOne(log logger.Logger, cfg Config, in InputSpec) (resample.Result, error) {
	raster, err := imagesrc.Load(in.Path)
	if err != nil {
		return resample.Result{}, err
	}
	var opts []imagesrc.ImageOption
	if len(in.Normalize) == 2 {
		opts = append(opts, imagesrc.WithNormalization(in.Normalize[0], in.Normalize[1]))
	}
	img, err := imagesrc.NewImage(raster, in.Projection.Projection(), opts...)
	if err != nil {
		return resample.Result{}, err
	}

	params := tilestore.Params{
		TileSize:    cfg.TileSize,
		Channels:    raster.C,
		Bits:        cfg.Bits,
		Signed:      raster.Signed,
		Description: cfg.Description,
	}
	if cfg.Coverage {
		params.Channels++
	}
	if params.Bits == 0 {
		params.Bits = raster.Bits
	}
	if cfg.Signed != nil {
		params.Signed = *cfg.Signed
	}

	out, err := tilestore.Create(log, in.Output, params, tilestore.WithSourceID(SourceID(in.Path)))
	if err != nil {
		return resample.Result{}, err
	}
	ropts := []resample.Option{
		resample.WithLogger(log),
		resample.WithDepth(cfg.Depth),
		resample.WithProbeGrid(cfg.ProbeGrid),
		resample.WithDilation(cfg.Dilate),
	}
	if cfg.Workers > 0 {
		ropts = append(ropts, resample.WithWorkers(cfg.Workers))
	}
	res, err := resample.Run(img, out, ropts...)
	if err != nil {
		return res, errors.Join(err, out.Discard())
	}
	return res, out.Close()
}

// Border stitches the borders of every page of the store at inPath into a new
// store at outPath.
func Border(log logger.Logger, inPath, outPath string) (border.Result, error) {
	in, err := tilestore.OpenRead(log, inPath)
	if err != nil {
		return border.Result{}, err
	}
	defer in.Close()

	out, err := tilestore.Create(log, outPath, in.Params(), tilestore.WithSourceID(in.ID()))
	if err != nil {
		return border.Result{}, err
	}
	res, err := border.Stitch(in, out, border.WithLogger(log))
	if err != nil {
		return res, errors.Join(err, out.Discard())
	}
	return res, out.Close()
}

// Mipmap repeats synthesis passes until a pass synthesizes nothing. Each pass
// replaces the store at outPath only once it is complete, and the next pass
// reads it from there. maxPasses of zero or less means no limit.
func Mipmap(log logger.Logger, inPath, outPath string, maxPasses int) (int, error) {
	current := inPath
	source := uuid.Nil
	for pass := 1; ; pass++ {
		res, err := mipmapPass(log, current, outPath, &source)
		if err != nil {
			return pass, err
		}
		current = outPath
		if res.Done() {
			log.Infof("mipmap: %s complete after %d passes", outPath, pass)
			return pass, nil
		}
		if maxPasses > 0 && pass >= maxPasses {
			return pass, fmt.Errorf("%w: %d passes", ErrPassLimit, pass)
		}
	}
}

// mipmapPass runs one synthesis pass. Every pass records the first input as
// its source, which is set from inPath if still nil.
func mipmapPass(log logger.Logger, inPath, outPath string, source *uuid.UUID) (mipmap.Result, error) {
	in, err := tilestore.OpenRead(log, inPath)
	if err != nil {
		return mipmap.Result{}, err
	}
	defer in.Close()
	if *source == uuid.Nil {
		*source = in.ID()
	}

	out, err := tilestore.Create(log, outPath, in.Params(), tilestore.WithSourceID(*source))
	if err != nil {
		return mipmap.Result{}, err
	}
	res, err := mipmap.Synthesize(in, out, mipmap.WithLogger(log))
	if err != nil {
		return res, errors.Join(err, out.Discard())
	}
	return res, out.Close()
}

// Finish appends a final metadata record to the store at path. An empty
// description keeps the one already recorded.
func Finish(log logger.Logger, path, description string) error {
	s, err := tilestore.OpenAppend(log, path)
	if err != nil {
		return err
	}
	if description != "" {
		s.SetDescription(description)
	}
	return s.Close()
}

// Sample answers queries read from r, one "lon lat" pair in degrees per line,
// with a line of channel values each. Directions without data print zeros.
// Blank lines and lines starting with # are skipped. It returns the number of
// queries answered.
func Sample(log logger.Logger, path string, depth int, r io.Reader, w io.Writer) (int, error) {
	s, err := tilestore.OpenRead(log, path)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	cat, err := tilestore.Scan(s, log)
	if err != nil {
		return 0, err
	}
	loc := lookup.NewLocator(log, s, cat)
	values := make([]float32, loc.Channels())
	out := bufio.NewWriter(w)
	rad := math.Pi / 180

	n := 0
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lon, lat, err := parseQuery(text)
		if err != nil {
			out.Flush()
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		loc.SampleLonLat(lon*rad, lat*rad, depth, values)
		for i, v := range values {
			if i > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		out.WriteByte('\n')
		n++
	}
	if err := scanner.Err(); err != nil {
		out.Flush()
		return n, err
	}
	log.Debugf("sample: %d queries, %d page reads", n, loc.Reads)
	return n, out.Flush()
}

func parseQuery(text string) (lon, lat float64, err error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrQuery, text)
	}
	if lon, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if lat, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return lon, lat, nil
}
