package circuit

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/netlist"
	"github.com/edp1096/lblmc/pkg/subsystem"
)

// Link routes one port injection between two generated subsystems:
// From's port_out[Out] feeds To's port_in[In].
type Link struct {
	Port int
	From string
	Out  int
	To   string
	In   int
}

func (l Link) String() string {
	return fmt.Sprintf("port %d: %s.port_out[%d] -> %s.port_in[%d]", l.Port, l.From, l.Out, l.To, l.In)
}

// Project is a system decomposed into subsystems coupled at shared port
// ids.
type Project struct {
	Circuits []*Circuit
	links    []Link
	log      *slog.Logger
}

// BuildProject builds every netlist as a subsystem, extracts the port
// models from each subsystem's own network and stamps every model into the
// other subsystems declaring the same port.
func BuildProject(netlists []*netlist.Netlist, reg *component.Registry, opts generator.Options) (*Project, error) {
	if len(netlists) == 0 {
		return nil, fmt.Errorf("%w: project has no subsystems", generator.ErrUsage)
	}
	p := &Project{log: opts.Logger}
	if p.log == nil {
		p.log = slog.Default()
	}

	names := make(map[string]bool)
	for _, n := range netlists {
		if names[n.Name] {
			return nil, fmt.Errorf("%w: subsystem name %s used twice", generator.ErrUsage, n.Name)
		}
		names[n.Name] = true

		c, err := NewSubsystem(n, reg, opts)
		if err != nil {
			return nil, err
		}
		p.Circuits = append(p.Circuits, c)
	}

	// models must come from the own networks only, before any cross stamp
	models := make([][]subsystem.PortModel, len(p.Circuits))
	for i, c := range p.Circuits {
		if len(c.sub.Ports()) == 0 {
			p.log.Warn("subsystem has no ports", "subsystem", c.name)
			continue
		}
		m, err := c.sub.ComputePortModels()
		if err != nil {
			return nil, err
		}
		models[i] = m
	}

	for i, from := range p.Circuits {
		for _, m := range models[i] {
			shared := false
			for j, to := range p.Circuits {
				if i == j {
					continue
				}
				if _, ok := to.sub.Port(m.ID); !ok {
					continue
				}
				shared = true
				if err := to.sub.StampOthersPortModel(m); err != nil {
					return nil, fmt.Errorf("%s: stamping model of %s: %w", to.name, from.name, err)
				}
				if m.HasSources() {
					inputs := to.sub.InputPorts()
					p.links = append(p.links, Link{
						Port: m.ID,
						From: from.name,
						Out:  len(from.sub.OutputPorts()),
						To:   to.name,
						In:   len(inputs) - 1,
					})
				}
			}

			if !shared {
				p.log.Warn("port not shared with any other subsystem", "subsystem", from.name, "port", m.ID)
				continue
			}
			if m.HasSources() {
				if err := from.sub.AddOwnSourceGains(m); err != nil {
					return nil, err
				}
			}
		}
	}
	return p, nil
}

// Links lists how port_out entries feed port_in entries.
func (p *Project) Links() []Link { return append([]Link(nil), p.links...) }

// Generate exports every subsystem into dir.
func (p *Project) Generate(dir string) ([]string, error) {
	var paths []string
	for _, c := range p.Circuits {
		path, err := c.Generate(dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
