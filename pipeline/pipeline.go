// Package pipeline orchestrates a compilation run: parse the input
// documents, expand the behavior tree, resolve every chart, compose
// the network, and emit the validated model. The run either produces a
// complete valid model or fails with the first located error; nothing
// partial ever leaves the pipeline.
package pipeline

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statechart-tools/janic/behaviortree"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/network"
	"github.com/statechart-tools/janic/resolver"
	"github.com/statechart-tools/janic/scxml"
)

// Document is one named input document.
type Document struct {
	Name string
	Data []byte
}

// Input is the material of one compilation run.
type Input struct {
	Name         string
	Charts       []Document
	BehaviorTree *Document
	Globals      []network.Global
}

// Pipeline runs compilations with a fixed configuration.
type Pipeline struct {
	logger       *zap.Logger
	library      *behaviortree.Library
	maxPending   int
	maxLocations int
	workers      int
}

// New returns a pipeline with default bounds, the default control-node
// library, and no logging.
func New() *Pipeline {
	return &Pipeline{
		logger:       zap.NewNop(),
		library:      behaviortree.DefaultLibrary(),
		maxPending:   16,
		maxLocations: 10000,
		workers:      1,
	}
}

// WithLogger sets the run logger.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	p.logger = logger
	return p
}

// WithLibrary sets the behavior-tree control-node library.
func (p *Pipeline) WithLibrary(lib *behaviortree.Library) *Pipeline {
	p.library = lib
	return p
}

// WithMaxPending bounds each automaton's internal-event queue.
func (p *Pipeline) WithMaxPending(max int) *Pipeline {
	p.maxPending = max
	return p
}

// WithMaxLocations bounds each automaton's reachable location count.
func (p *Pipeline) WithMaxLocations(max int) *Pipeline {
	p.maxLocations = max
	return p
}

// WithWorkers sets how many charts resolve concurrently. Resolution is
// per-automaton independent; results are still assembled in input
// order, so the emitted model does not depend on scheduling.
func (p *Pipeline) WithWorkers(n int) *Pipeline {
	if n > 0 {
		p.workers = n
	}
	return p
}

// Compile runs the full pipeline over one input set.
func (p *Pipeline) Compile(in Input) (*jani.Model, error) {
	log := p.logger.With(zap.String("run", uuid.NewString()), zap.String("model", in.Name))

	charts, err := p.parseCharts(in, log)
	if err != nil {
		return nil, err
	}

	internal := network.ClassifyEvents(charts)
	params, err := network.EventParams(charts, network.Scope(in.Globals, nil))
	if err != nil {
		return nil, err
	}
	scope := network.Scope(in.Globals, params)

	automata, err := p.resolveAll(charts, scope, internal, log)
	if err != nil {
		return nil, err
	}

	composer := network.NewComposer(in.Name).WithGlobals(in.Globals).WithParams(params)
	for _, a := range automata {
		composer.Add(a)
	}
	model, err := composer.Compose()
	if err != nil {
		return nil, err
	}
	log.Info("composed network",
		zap.Int("automata", len(model.Automata)),
		zap.Int("variables", len(model.Variables)),
		zap.Int("syncs", len(model.System.Syncs)))
	return model, nil
}

// CompileManifest resolves a manifest's file references against its
// directory and compiles the result under the manifest's bounds.
func (p *Pipeline) CompileManifest(m *Manifest, manifestPath string) (*jani.Model, error) {
	base := filepath.Dir(manifestPath)
	globals, err := m.globals(manifestPath)
	if err != nil {
		return nil, err
	}
	in := Input{Name: m.Name, Globals: globals}
	for _, f := range m.Charts {
		data, err := os.ReadFile(filepath.Join(base, f))
		if err != nil {
			return nil, err
		}
		in.Charts = append(in.Charts, Document{Name: f, Data: data})
	}
	if m.BehaviorTree != "" {
		data, err := os.ReadFile(filepath.Join(base, m.BehaviorTree))
		if err != nil {
			return nil, err
		}
		in.BehaviorTree = &Document{Name: m.BehaviorTree, Data: data}
	}

	run := *p
	if m.MaxPending > 0 {
		run.maxPending = m.MaxPending
	}
	if m.MaxLocations > 0 {
		run.maxLocations = m.MaxLocations
	}
	return run.Compile(in)
}

func (p *Pipeline) parseCharts(in Input, log *zap.Logger) ([]*scxml.Chart, error) {
	var charts []*scxml.Chart
	if in.BehaviorTree != nil {
		tree, err := behaviortree.Parse(in.BehaviorTree.Data, in.BehaviorTree.Name)
		if err != nil {
			return nil, err
		}
		expanded, err := behaviortree.Expand(tree, p.library, in.BehaviorTree.Name)
		if err != nil {
			return nil, err
		}
		log.Info("expanded behavior tree",
			zap.String("doc", in.BehaviorTree.Name), zap.Int("automata", len(expanded)))
		charts = append(charts, expanded...)
	}
	for _, doc := range in.Charts {
		chart, err := scxml.Parse(doc.Data, doc.Name)
		if err != nil {
			return nil, err
		}
		log.Debug("parsed chart",
			zap.String("doc", doc.Name), zap.String("chart", chart.Name),
			zap.Int("states", len(chart.AllStates())))
		charts = append(charts, chart)
	}
	return charts, nil
}

// resolveAll flattens every chart, fanning out across workers. Errors
// are reported for the first failing chart in input order, independent
// of completion order.
func (p *Pipeline) resolveAll(charts []*scxml.Chart, scope expr.Scope, internal map[string]map[string]bool, log *zap.Logger) ([]*resolver.Automaton, error) {
	automata := make([]*resolver.Automaton, len(charts))
	errs := make([]error, len(charts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)
	for i, chart := range charts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chart *scxml.Chart) {
			defer wg.Done()
			defer func() { <-sem }()
			automata[i], errs[i] = resolver.New(chart, scope, internal[chart.Name]).
				WithMaxPending(p.maxPending).
				WithMaxLocations(p.maxLocations).
				Resolve()
		}(i, chart)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		a := automata[i]
		log.Debug("resolved automaton",
			zap.String("chart", a.Chart.Name),
			zap.Int("locations", len(a.Locations)),
			zap.Int("edges", len(a.Edges)))
	}
	return automata, nil
}
