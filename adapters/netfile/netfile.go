// Package netfile reads and writes a network as a YAML (or JSON) edge
// list:
//
//	root: r
//	leaves: [a, b, c, d]
//	edges:
//	  - {parent: r, child: x, length: 0.5}
//	  - {parent: x, child: h, length: 0.1, gamma: 0.7}
//
// Nodes are named by the edges that touch them. A node without child edges
// is a leaf and its name is the taxon; leaves lists taxa explicitly and is
// checked against the edges when given. A missing length is NaN, as is a
// missing γ on a hybrid edge; tree edges default to γ = 1.
package netfile

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"netgof/domain/network"
	"netgof/internal/errors"
)

// Document is the serialized form of a network.
type Document struct {
	Root   string   `yaml:"root" json:"root"`
	Leaves []string `yaml:"leaves,omitempty" json:"leaves,omitempty"`
	Edges  []Edge   `yaml:"edges" json:"edges"`
}

// Edge is one directed edge. Nil values are missing.
type Edge struct {
	Parent string   `yaml:"parent" json:"parent"`
	Child  string   `yaml:"child" json:"child"`
	Length *float64 `yaml:"length,omitempty" json:"length,omitempty"`
	Gamma  *float64 `yaml:"gamma,omitempty" json:"gamma,omitempty"`
}

// Build creates the network and validates its structure.
func (d *Document) Build() (*network.Network, error) {
	if d.Root == "" {
		return nil, errors.InvalidInput("network has no root")
	}
	if len(d.Edges) == 0 {
		return nil, errors.InvalidInput("network has no edges")
	}

	hasChild := make(map[string]bool)
	parents := make(map[string]int)
	for i, e := range d.Edges {
		if e.Parent == "" || e.Child == "" {
			return nil, errors.InvalidInputf("edge %d needs both a parent and a child", i+1)
		}
		hasChild[e.Parent] = true
		parents[e.Child]++
	}

	n := network.New()
	ids := make(map[string]int)
	node := func(name string) int {
		if id, ok := ids[name]; ok {
			return id
		}
		id := n.AddNode(name, !hasChild[name])
		ids[name] = id
		return id
	}
	n.Root = node(d.Root)
	for _, e := range d.Edges {
		length := math.NaN()
		if e.Length != nil {
			length = *e.Length
		}
		gamma := 1.0
		if parents[e.Child] > 1 {
			gamma = math.NaN()
		}
		if e.Gamma != nil {
			gamma = *e.Gamma
		}
		n.AddEdge(node(e.Parent), node(e.Child), length, gamma)
	}

	if len(d.Leaves) > 0 {
		want := append([]string(nil), d.Leaves...)
		sort.Strings(want)
		got := n.Taxa()
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return nil, errors.InvalidInputf("leaves %v do not match the leaves of the edges %v", want, got)
		}
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// FromNetwork serializes net. Unnamed internal nodes are named n<ID>.
func FromNetwork(net *network.Network) Document {
	name := func(id int) string {
		v := net.Node(id)
		if v.Name != "" {
			return v.Name
		}
		return fmt.Sprintf("n%d", id)
	}
	d := Document{Root: name(net.Root), Leaves: net.Taxa()}
	for _, e := range net.Edges() {
		out := Edge{Parent: name(e.Parent), Child: name(e.Child)}
		if !math.IsNaN(e.Length) {
			l := e.Length
			out.Length = &l
		}
		if e.Hybrid && !math.IsNaN(e.Gamma) {
			g := e.Gamma
			out.Gamma = &g
		}
		d.Edges = append(d.Edges, out)
	}
	return d
}

// Decode reads a YAML document and builds its network.
func Decode(r io.Reader) (*network.Network, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, errors.InvalidInputf("failed to parse network: %v", err)
	}
	return d.Build()
}

// ReadFile loads a network from a YAML file.
func ReadFile(path string) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("failed to open network file", err)
	}
	defer f.Close()
	net, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return net, nil
}

// Encode writes net as YAML.
func Encode(w io.Writer, net *network.Network) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromNetwork(net)); err != nil {
		return errors.IOError("failed to write network", err)
	}
	return enc.Close()
}
