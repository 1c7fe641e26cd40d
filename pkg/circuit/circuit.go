// Package circuit materializes a netlist into components, assigns their
// unknowns and drives them through a generator.
package circuit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/netlist"
	"github.com/edp1096/lblmc/pkg/subsystem"
)

var ErrDuplicateLabel = errors.New("duplicate component label")

type Circuit struct {
	name      string
	devices   []component.Component
	numNodes  int
	branchMap map[string]int // ideal voltage source label -> solution slot

	engine *generator.Engine
	sub    *subsystem.Engine
	log    *slog.Logger
}

// New builds a monolithic solver for n. Port declarations are ignored.
func New(n *netlist.Netlist, reg *component.Registry, opts generator.Options) (*Circuit, error) {
	c, err := setup(n, reg, opts)
	if err != nil {
		return nil, err
	}
	if len(n.Ports) > 0 {
		c.log.Debug("ports ignored in monolithic build", "model", c.name, "ports", len(n.Ports))
	}

	c.engine, err = generator.New(c.name, c.NumSolutions(), opts)
	if err != nil {
		return nil, err
	}
	if err := c.Stamp(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewSubsystem builds n as one subsystem of a decomposed system and
// declares its ports.
func NewSubsystem(n *netlist.Netlist, reg *component.Registry, opts generator.Options) (*Circuit, error) {
	c, err := setup(n, reg, opts)
	if err != nil {
		return nil, err
	}

	c.sub, err = subsystem.New(c.name, c.NumSolutions(), opts)
	if err != nil {
		return nil, err
	}
	c.engine = c.sub.Engine

	if err := c.Stamp(); err != nil {
		return nil, err
	}
	for _, p := range n.Ports {
		if err := c.sub.DeclarePort(subsystem.Port{ID: p.ID, P: p.P, N: p.N}); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", c.name, p.Line, err)
		}
	}
	return c, nil
}

func setup(n *netlist.Netlist, reg *component.Registry, opts generator.Options) (*Circuit, error) {
	c := &Circuit{
		name:      n.Name,
		numNodes:  n.NodeCount,
		branchMap: make(map[string]int),
		log:       opts.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if err := c.SetupDevices(n.Components, reg); err != nil {
		return nil, err
	}
	c.AssignBranches()
	return c, nil
}

// SetupDevices produces one component per listing and rejects duplicate
// labels.
func (c *Circuit) SetupDevices(listings []netlist.Listing, reg *component.Registry) error {
	seen := make(map[string]int)
	for _, l := range listings {
		if line, exists := seen[l.Label]; exists {
			return fmt.Errorf("%s: line %d: %w: %s (first used on line %d)", c.name, l.Line, ErrDuplicateLabel, l.Label, line)
		}
		seen[l.Label] = l.Line

		dev, err := reg.Produce(l)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		c.devices = append(c.devices, dev)
	}
	return nil
}

// AssignBranches places the ideal voltage source unknowns after the node
// unknowns, in netlist order.
func (c *Circuit) AssignBranches() {
	next := c.numNodes + 1
	for _, dev := range c.devices {
		if dev.NumIdealVoltageSources() == 0 {
			continue
		}
		c.branchMap[dev.Label()] = next
		next += dev.NumIdealVoltageSources()
	}
}

// Stamp binds solution slots and stamps every device in netlist order.
func (c *Circuit) Stamp() error {
	for _, dev := range c.devices {
		if k := dev.NumIdealVoltageSources(); k > 0 {
			first := c.branchMap[dev.Label()]
			slots := make([]int, k)
			for i := range slots {
				slots[i] = first + i
			}
			if err := dev.BindSolutionSlots(slots...); err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
		}
		if err := c.engine.StampSystem(dev); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	c.log.Debug("circuit stamped",
		"model", c.name,
		"nodes", c.numNodes,
		"branches", c.NumSolutions()-c.numNodes,
		"devices", len(c.devices))
	return nil
}

func (c *Circuit) Name() string { return c.name }

func (c *Circuit) NumNodes() int { return c.numNodes }

// NumSolutions is the unknown count: nodes plus ideal voltage source
// branches.
func (c *Circuit) NumSolutions() int {
	n := c.numNodes
	for _, dev := range c.devices {
		n += dev.NumIdealVoltageSources()
	}
	return n
}

func (c *Circuit) Devices() []component.Component { return c.devices }

// Branch returns the solution slot of an ideal voltage source.
func (c *Circuit) Branch(label string) (int, bool) {
	slot, ok := c.branchMap[label]
	return slot, ok
}

func (c *Circuit) Engine() *generator.Engine { return c.engine }

// Subsystem is nil for a monolithic circuit.
func (c *Circuit) Subsystem() *subsystem.Engine { return c.sub }

// Generate exports the solver header into dir.
func (c *Circuit) Generate(dir string) (string, error) {
	return c.engine.Export(dir)
}
