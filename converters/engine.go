package converters

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/darianmavgo/tabconv/logger"
	"github.com/darianmavgo/tabconv/metrics"
	"github.com/darianmavgo/tabconv/model"
)

// Request describes one conversion. Empty formats are detected from the qualifiers.
type Request struct {
	Source            string
	SourceFormat      Format
	Destination       string
	DestinationFormat Format
	WriteType         WriteType
}

// EngineConfig configures NewEngineFromConfig.
type EngineConfig struct {
	Options  *Options
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Observer Observer
	Detector Detector
	Modules  []Module
}

// Engine detects formats, resolves converters and runs read then write.
type Engine struct {
	registry *Registry
	detector Detector
	opts     *Options
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewEngine creates an engine and discovers the given modules.
func NewEngine(opts *Options, log *zap.Logger, modules ...Module) *Engine {
	return NewEngineFromConfig(EngineConfig{Options: opts, Logger: log, Modules: modules})
}

// NewEngineFromConfig creates an engine from cfg and discovers cfg.Modules.
func NewEngineFromConfig(cfg EngineConfig) *Engine {
	if cfg.Options == nil {
		cfg.Options = DefaultOptions()
	}
	log := logger.OrNop(cfg.Logger)
	e := &Engine{
		registry: NewRegistry(cfg.Options, WithLogger(log), WithObserver(cfg.Observer)),
		detector: cfg.Detector,
		opts:     cfg.Options,
		logger:   log.With(zap.String("component", "engine")),
		metrics:  cfg.Metrics,
	}
	e.registry.Discover(cfg.Modules...)
	return e
}

// Registry returns the engine's converter registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Detect exposes the engine's format detector.
func (e *Engine) Detect(qualifier string) (Format, bool) {
	return e.detector.Detect(qualifier)
}

// Convert runs one conversion. Rows are read unless the write is schema only.
func (e *Engine) Convert(ctx context.Context, req Request) error {
	srcFormat, err := e.format(req.SourceFormat, req.Source)
	if err != nil {
		return &ConversionError{Op: "detect source", Format: req.SourceFormat, Err: err}
	}
	dstFormat, err := e.format(req.DestinationFormat, req.Destination)
	if err != nil {
		return &ConversionError{Op: "detect destination", Format: req.DestinationFormat, Err: err}
	}

	log := e.logger.With(
		zap.String("source", req.Source),
		zap.String("source_format", string(srcFormat)),
		zap.String("destination", req.Destination),
		zap.String("destination_format", string(dstFormat)),
		zap.String("write_type", req.WriteType.String()))
	log.Info("conversion started")

	err = e.convert(ctx, req, srcFormat, dstFormat)
	e.metrics.Conversion(string(srcFormat), string(dstFormat), err)
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		return err
	}
	log.Info("conversion completed")
	return nil
}

func (e *Engine) convert(ctx context.Context, req Request, srcFormat, dstFormat Format) error {
	md, err := e.Read(ctx, srcFormat, ResourceFor(req.Source), req.WriteType.Data())
	if err != nil {
		return err
	}
	return e.Write(ctx, dstFormat, ResourceFor(req.Destination), md, req.WriteType)
}

// Read resolves a reader for format and res and runs it.
func (e *Engine) Read(ctx context.Context, format Format, res Resource, includeData bool) (*model.Metadata, error) {
	reader, ok := e.registry.Reader(format, res)
	if !ok {
		return nil, &ConversionError{Op: "read", Format: format, Err: fmt.Errorf("%w: no reader for %s", ErrNoConverter, format)}
	}
	start := time.Now()
	md, err := reader.Read(ctx, res, includeData)
	if err != nil {
		e.metrics.Operation("read", string(format), 0, 0, start, err)
		return nil, &ConversionError{Op: "read", Format: format, Err: err}
	}
	e.metrics.Operation("read", string(format), len(md.Tables), md.RowCount(), start, nil)
	e.logger.Debug("source read",
		zap.String("format", string(format)),
		zap.Int("tables", len(md.Tables)),
		zap.Int("rows", md.RowCount()),
		zap.Duration("elapsed", time.Since(start)))
	return md, nil
}

// Write resolves a writer for format and res and runs it.
func (e *Engine) Write(ctx context.Context, format Format, res Resource, md *model.Metadata, wt WriteType) error {
	writer, ok := e.registry.Writer(format, res)
	if !ok {
		return &ConversionError{Op: "write", Format: format, Err: fmt.Errorf("%w: no writer for %s", ErrNoConverter, format)}
	}
	start := time.Now()
	if err := writer.Write(ctx, res, md, wt); err != nil {
		e.metrics.Operation("write", string(format), 0, 0, start, err)
		return &ConversionError{Op: "write", Format: format, Err: err}
	}
	rows := 0
	if wt.Data() && md != nil {
		rows = md.RowCount()
	}
	tables := 0
	if md != nil {
		tables = len(md.Tables)
	}
	e.metrics.Operation("write", string(format), tables, rows, start, nil)
	e.logger.Debug("destination written",
		zap.String("format", string(format)),
		zap.Int("tables", tables),
		zap.Int("rows", rows),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (e *Engine) format(given Format, qualifier string) (Format, error) {
	if f := given.Normalize(); f != "" {
		return f, nil
	}
	if f, ok := e.detector.Detect(qualifier); ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, qualifier)
}

// ResourceFor builds the resource for a qualifier: a Connection for connection strings,
// a File otherwise.
func ResourceFor(qualifier string) Resource {
	if _, dsn, ok := SplitConnection(qualifier); ok {
		return Connection{DSN: dsn}
	}
	return File{Path: qualifier}
}
