package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/network"
	"github.com/statechart-tools/janic/scxml"
)

// Manifest describes one compilation run: the participating chart
// documents, an optional behavior tree, the network-global variable
// declarations, and the resolution bounds.
type Manifest struct {
	Name         string       `yaml:"name"`
	MaxPending   int          `yaml:"max_pending"`
	MaxLocations int          `yaml:"max_locations"`
	Globals      []GlobalDecl `yaml:"globals"`
	Charts       []string     `yaml:"charts"`
	BehaviorTree string       `yaml:"behavior_tree"`
}

// GlobalDecl declares one network-wide variable.
type GlobalDecl struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Init string `yaml:"init"`
}

// ParseManifest decodes and checks a manifest document.
func ParseManifest(data []byte, doc string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, diag.Wrap(err, diag.KindStructural, doc, "", "malformed manifest")
	}
	if m.Name == "" {
		return nil, diag.New(diag.KindStructural, doc, "name", "manifest must name the model")
	}
	if len(m.Charts) == 0 && m.BehaviorTree == "" {
		return nil, diag.New(diag.KindStructural, doc, "charts",
			"manifest lists no charts and no behavior tree")
	}
	for _, g := range m.Globals {
		if g.ID == "" {
			return nil, diag.New(diag.KindStructural, doc, "globals", "global declaration without id")
		}
		if g.Type == "" {
			return nil, diag.New(diag.KindStructural, doc, g.ID, "global %q has no type", g.ID)
		}
	}
	return &m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, path)
}

// globals lowers the declarations into composer form.
func (m *Manifest) globals(doc string) ([]network.Global, error) {
	var out []network.Global
	for _, g := range m.Globals {
		typ, err := scxml.ParseType(g.Type)
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, doc, g.ID,
				"global %q has invalid type %q", g.ID, g.Type)
		}
		out = append(out, network.Global{Name: g.ID, Type: typ, Init: g.Init, Doc: doc})
	}
	return out, nil
}
