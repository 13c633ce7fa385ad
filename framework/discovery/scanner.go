package discovery

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/logging"
)

// Scanner runs the discovery pass: locate, load, extract, validate, filter,
// sort and register.
type Scanner struct {
	locator   *Locator
	loader    *Loader
	extractor *Extractor
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithExcludes replaces the directory names the locator skips.
func WithExcludes(names ...string) Option {
	return func(s *Scanner) { s.locator = NewLocator(names...) }
}

// NewScanner creates a Scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		locator:   NewLocator(),
		loader:    NewLoader(),
		extractor: NewExtractor(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary describes a finished pass.
type Summary struct {
	PassID     string
	Candidates int
	Registered []string
}

// RegisterServices resolves every annotated service in bundles that is active
// in env and registers it into reg.
//
// Structural violations and malformed metadata abort the pass before anything
// is registered. Candidates that do not load and types without metadata are
// skipped silently.
func (s *Scanner) RegisterServices(reg Registry, bs []bundles.Bundle, env string) error {
	_, err := s.Scan(reg, bs, env)
	return err
}

// Scan is RegisterServices returning a summary of what happened.
func (s *Scanner) Scan(reg Registry, bs []bundles.Bundle, env string) (Summary, error) {
	sum := Summary{PassID: uuid.NewString()}
	log := s.logger.With("pass", sum.PassID, "env", env)

	s.loader.Reset()
	defer s.loader.Reset()

	found, candidates, err := s.collect(bs, env, log)
	sum.Candidates = candidates
	if err != nil {
		return sum, err
	}

	for _, d := range found.sorted() {
		register(reg, d)
		sum.Registered = append(sum.Registered, d.ID())
		log.Debug("registered service", "id", d.ID(), "class", d.Class, "priority", d.Service.Priority)
	}

	log.Info("annotated services registered", "bundles", len(bs), "candidates", candidates, "services", len(sum.Registered))
	return sum, nil
}

func (s *Scanner) collect(bs []bundles.Bundle, env string, log *slog.Logger) (*collection, int, error) {
	found := newCollection()
	candidates := 0

	for _, b := range bs {
		log.Debug("scanning bundle", "bundle", b.Name, "path", b.Path)

		for cand, err := range s.locator.Candidates(b) {
			if err != nil {
				return nil, candidates, fmt.Errorf("scan bundle %s: %w", b.Name, err)
			}
			candidates++

			class, err := s.loader.Load(cand)
			if err != nil {
				if errors.Is(err, ErrUnloadable) {
					continue
				}
				return nil, candidates, err
			}

			d, ok, err := s.extractor.Extract(class)
			if err != nil {
				return nil, candidates, err
			}
			if !ok {
				continue
			}

			if err := validateStructure(d, class); err != nil {
				return nil, candidates, err
			}
			if !activeIn(d, env) {
				continue
			}
			found.add(d)
		}
	}
	return found, candidates, nil
}
