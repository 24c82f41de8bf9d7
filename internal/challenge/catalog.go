// Package challenge holds the scenario catalog and grades finished runs
// against each scenario's success condition.
package challenge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/metalagman/robolab/internal/history"
	"github.com/metalagman/robolab/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrUnknownScenario is returned by Lookup for ids missing from the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Difficulty is a display label.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Scenario is one challenge: display text, an optional spawn pose and the
// condition that grades a run.
type Scenario struct {
	ID          string      `yaml:"id"                    json:"id"`
	Title       string      `yaml:"title"                 json:"title"`
	Description string      `yaml:"description"           json:"description"`
	Difficulty  Difficulty  `yaml:"difficulty"            json:"difficulty"`
	Start       *model.Pose `yaml:"start,omitempty"       json:"start,omitempty"`
	Check       Condition   `yaml:"check"                 json:"check"`

	pred Predicate
}

// Evaluate reports whether the run described by start, end and h solved the
// scenario.
func (s Scenario) Evaluate(start, end model.RobotState, h history.Snapshot) bool {
	if s.pred == nil {
		return false
	}
	return s.pred(start, end, h)
}

// StartState returns defaults moved to the scenario's spawn pose, if it
// declares one.
func (s Scenario) StartState(defaults model.RobotState) model.RobotState {
	if s.Start == nil {
		return defaults
	}
	return defaults.WithPose(*s.Start)
}

// Catalog is an ordered set of scenarios.
type Catalog struct {
	scenarios []Scenario
	index     map[string]int
}

type catalogFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load decodes a YAML catalog and compiles every condition.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{index: make(map[string]int, len(file.Scenarios))}
	for _, s := range file.Scenarios {
		if s.ID == "" {
			return nil, errors.New("scenario without id")
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario %q", s.ID)
		}
		pred, err := s.Check.Compile()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		s.pred = pred
		c.index[s.ID] = len(c.scenarios)
		c.scenarios = append(c.scenarios, s)
	}
	return c, nil
}

// LoadFile loads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(bytes.NewReader(defaultCatalog))
	})
	return defaultCat, defaultErr
}

// Lookup finds a scenario by id.
func (c *Catalog) Lookup(id string) (Scenario, error) {
	i, ok := c.index[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return c.scenarios[i], nil
}

// All returns the scenarios in catalog order.
func (c *Catalog) All() []Scenario {
	return append([]Scenario(nil), c.scenarios...)
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int {
	return len(c.scenarios)
}
