package converters

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/darianmavgo/tabconv/logger"
)

// Capability is the role a converter plays.
type Capability string

const (
	CapabilityReader Capability = "reader"
	CapabilityWriter Capability = "writer"
)

// ReaderFactory creates a reader instance.
type ReaderFactory func() Reader

// WriterFactory creates a writer instance.
type WriterFactory func() Writer

// Registration describes one discovered converter.
type Registration struct {
	Name       string
	Namespace  string
	Format     Format
	Kind       Kind
	Capability Capability
}

// Observer is notified during discovery. It is used for inventory output only.
type Observer interface {
	BeforeDiscovery()
	Registered(reg Registration)
	AfterDiscovery(count int)
}

// Module is a format package's registration routine, rooted at a namespace such as
// "converters/xlsx".
type Module struct {
	Namespace string
	Register  func(r *Registry)
}

type entry struct {
	Registration
	newReader ReaderFactory
	newWriter WriterFactory
}

type instanceKey struct {
	capability Capability
	format     Format
	kind       Kind
}

// Registry matches (format, resource) pairs to converters. Registrations are kept in
// declaration order; at most one instance per (capability, format, kind) is created.
type Registry struct {
	mu        sync.Mutex
	opts      *Options
	observer  Observer
	logger    *zap.Logger
	namespace string
	entries   []entry
	instances map[instanceKey]any
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver sets the discovery observer.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry. opts is injected into option-aware converters.
func NewRegistry(opts *Options, ropts ...RegistryOption) *Registry {
	if opts == nil {
		opts = DefaultOptions()
	}
	r := &Registry{
		opts:      opts,
		instances: make(map[instanceKey]any),
	}
	for _, o := range ropts {
		o(r)
	}
	r.logger = logger.OrNop(r.logger).With(zap.String("component", "converter_registry"))
	return r
}

// Discover runs the registration routine of every module under one of the configured
// root namespaces. Modules outside the roots do not participate.
func (r *Registry) Discover(modules ...Module) int {
	if r.observer != nil {
		r.observer.BeforeDiscovery()
	}
	before := r.count()
	for _, m := range modules {
		if m.Register == nil || !r.inScope(m.Namespace) {
			r.logger.Debug("module skipped", zap.String("namespace", m.Namespace))
			continue
		}
		r.setNamespace(m.Namespace)
		m.Register(r)
	}
	r.setNamespace("")
	discovered := r.count() - before
	if r.observer != nil {
		r.observer.AfterDiscovery(discovered)
	}
	r.logger.Debug("discovery finished", zap.Int("converters", discovered))
	return discovered
}

func (r *Registry) inScope(namespace string) bool {
	if len(r.opts.Namespaces) == 0 {
		return true
	}
	for _, root := range r.opts.Namespaces {
		if strings.HasPrefix(namespace, root) {
			return true
		}
	}
	return false
}

func (r *Registry) setNamespace(ns string) {
	r.mu.Lock()
	r.namespace = ns
	r.mu.Unlock()
}

func (r *Registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RegisterReader records a reader for format on resources of the given kind.
// An empty format or nil factory is ignored.
func (r *Registry) RegisterReader(format Format, kind Kind, name string, factory ReaderFactory) {
	if factory == nil {
		r.logger.Debug("reader without factory ignored", zap.String("name", name))
		return
	}
	r.add(entry{
		Registration: Registration{Name: name, Format: format, Kind: kind, Capability: CapabilityReader},
		newReader:    factory,
	})
}

// RegisterWriter records a writer for format on resources of the given kind.
// An empty format or nil factory is ignored.
func (r *Registry) RegisterWriter(format Format, kind Kind, name string, factory WriterFactory) {
	if factory == nil {
		r.logger.Debug("writer without factory ignored", zap.String("name", name))
		return
	}
	r.add(entry{
		Registration: Registration{Name: name, Format: format, Kind: kind, Capability: CapabilityWriter},
		newWriter:    factory,
	})
}

func (r *Registry) add(e entry) {
	e.Format = e.Format.Normalize()
	if e.Format == "" || e.Kind == "" {
		r.logger.Debug("converter without format tag ignored", zap.String("name", e.Name))
		return
	}
	r.mu.Lock()
	e.Namespace = r.namespace
	for _, existing := range r.entries {
		if existing.Capability == e.Capability && existing.Format == e.Format && existing.Kind == e.Kind {
			r.logger.Warn("converter shadowed by earlier registration",
				zap.String("name", e.Name),
				zap.String("winner", existing.Name),
				zap.String("format", string(e.Format)))
			break
		}
	}
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	r.logger.Debug("converter registered",
		zap.String("name", e.Name),
		zap.String("format", string(e.Format)),
		zap.String("kind", string(e.Kind)),
		zap.String("capability", string(e.Capability)))
	if r.observer != nil {
		r.observer.Registered(e.Registration)
	}
}

// Reader resolves a reader for format that can consume res. It returns false when no
// registered reader matches.
func (r *Registry) Reader(format Format, res Resource) (Reader, bool) {
	inst, ok := r.resolve(CapabilityReader, format, res)
	if !ok {
		return nil, false
	}
	return inst.(Reader), true
}

// Writer resolves a writer for format that can produce res. It returns false when no
// registered writer matches.
func (r *Registry) Writer(format Format, res Resource) (Writer, bool) {
	inst, ok := r.resolve(CapabilityWriter, format, res)
	if !ok {
		return nil, false
	}
	return inst.(Writer), true
}

// resolve walks the resource kinds from most to least specific. For each kind the
// cached instance wins, then the first matching registration.
func (r *Registry) resolve(capability Capability, format Format, res Resource) (any, bool) {
	if res == nil {
		return nil, false
	}
	format = format.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kind := range res.Kinds() {
		key := instanceKey{capability: capability, format: format, kind: kind}
		if inst, ok := r.instances[key]; ok {
			return inst, true
		}
		for _, e := range r.entries {
			if e.Capability != capability || e.Format != format || e.Kind != kind {
				continue
			}
			inst := e.instantiate()
			if inst == nil {
				continue
			}
			if oa, ok := inst.(OptionsAware); ok {
				oa.SetOptions(r.opts)
			}
			if la, ok := inst.(LoggerAware); ok {
				la.SetLogger(r.logger.With(zap.String("converter", e.Name)))
			}
			r.instances[key] = inst
			r.logger.Debug("converter instantiated",
				zap.String("name", e.Name),
				zap.String("format", string(format)),
				zap.String("kind", string(kind)))
			return inst, true
		}
	}
	return nil, false
}

func (e entry) instantiate() any {
	switch e.Capability {
	case CapabilityReader:
		if rd := e.newReader(); rd != nil {
			return rd
		}
	case CapabilityWriter:
		if wr := e.newWriter(); wr != nil {
			return wr
		}
	}
	return nil
}

// Registrations returns all accepted registrations sorted by format, capability and kind.
// Entries with equal keys keep declaration order.
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	list := make([]Registration, len(r.entries))
	for i, e := range r.entries {
		list[i] = e.Registration
	}
	r.mu.Unlock()

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Format != b.Format {
			return a.Format < b.Format
		}
		if a.Capability != b.Capability {
			return a.Capability < b.Capability
		}
		return a.Kind < b.Kind
	})
	return list
}

// Formats returns the sorted set of formats with at least one registration.
func (r *Registry) Formats() []Format {
	seen := make(map[Format]bool)
	var list []Format
	for _, reg := range r.Registrations() {
		if !seen[reg.Format] {
			seen[reg.Format] = true
			list = append(list, reg.Format)
		}
	}
	return list
}
