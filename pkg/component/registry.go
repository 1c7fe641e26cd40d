package component

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"

	"github.com/edp1096/lblmc/pkg/netlist"
)

var (
	ErrUnknownType    = errors.New("unknown component type")
	ErrInvalidListing = errors.New("invalid component listing")
)

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Producer validates a listing and builds one element type from it.
//
// With Variadic unset the listing must carry exactly Params parameters and
// Terminals terminals. With Variadic set it needs at least Params parameters
// and exactly Terminals terminals per parameter.
type Producer struct {
	Type      string
	Params    int
	Terminals int
	Variadic  bool
	New       func(label string, params []float64) (Component, error)
}

func (p Producer) check(l netlist.Listing) error {
	if l.Type != p.Type {
		return fmt.Errorf("%w: producer %s given type %s", ErrInvalidListing, p.Type, l.Type)
	}
	if l.Label == "" {
		return fmt.Errorf("%w: %s with empty label", ErrInvalidListing, p.Type)
	}
	if !labelPattern.MatchString(l.Label) {
		return fmt.Errorf("%w: %s label %q is not an identifier", ErrInvalidListing, p.Type, l.Label)
	}

	if p.Variadic {
		if len(l.Params) < p.Params {
			return fmt.Errorf("%w: %s %s takes at least %d parameters, got %d", ErrInvalidListing, p.Type, l.Label, p.Params, len(l.Params))
		}
		if len(l.Terminals) != p.Terminals*len(l.Params) {
			return fmt.Errorf("%w: %s %s takes %d terminals per parameter, got %d terminals for %d parameters",
				ErrInvalidListing, p.Type, l.Label, p.Terminals, len(l.Terminals), len(l.Params))
		}
		return nil
	}

	if len(l.Params) != p.Params {
		return fmt.Errorf("%w: %s %s takes %d parameters, got %d", ErrInvalidListing, p.Type, l.Label, p.Params, len(l.Params))
	}
	if len(l.Terminals) != p.Terminals {
		return fmt.Errorf("%w: %s %s takes %d terminals, got %d", ErrInvalidListing, p.Type, l.Label, p.Terminals, len(l.Terminals))
	}
	return nil
}

// Produce validates l and returns a connected element.
func (p Producer) Produce(l netlist.Listing) (Component, error) {
	if err := p.check(l); err != nil {
		return nil, err
	}
	c, err := p.New(l.Label, slices.Clone(l.Params))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrInvalidListing, p.Type, l.Label, err)
	}
	if err := c.Connect(l.Terminals...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	return c, nil
}

// Registry maps type names to producers. It is built once per run and
// passed to whoever materializes netlists.
type Registry struct {
	producers map[string]Producer
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{producers: make(map[string]Producer), logger: logger}
}

func (r *Registry) Register(p Producer) error {
	if p.Type == "" || p.New == nil {
		return fmt.Errorf("register: producer needs a type name and a constructor")
	}
	if _, exists := r.producers[p.Type]; exists {
		return fmt.Errorf("register: type %s already registered", p.Type)
	}
	r.producers[p.Type] = p
	return nil
}

func (r *Registry) Lookup(typ string) (Producer, bool) {
	p, ok := r.producers[typ]
	return p, ok
}

// Types lists the registered type names in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.producers))
	for t := range r.producers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) Produce(l netlist.Listing) (Component, error) {
	p, ok := r.producers[l.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q (line %d)", ErrUnknownType, l.Type, l.Line)
	}
	c, err := p.Produce(l)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", l.Line, err)
	}
	r.logger.Debug("component produced", "type", l.Type, "label", l.Label, "terminals", l.Terminals)
	return c, nil
}
