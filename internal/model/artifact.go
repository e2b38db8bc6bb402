package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
	"github.com/i474232898/pm25-dashboard/internal/common"
)

// Supported artifact kinds.
const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Artifact is the serialized form of a trained regression model.
type Artifact struct {
	Kind     string   `json:"kind"`
	Features []string `json:"features"`

	// linear
	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`

	// forest
	Trees []Tree `json:"trees,omitempty"`
}

// Tree is one regression tree stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left >= 0, otherwise a leaf holding Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// ReadFile decodes the artifact stored at path.
func ReadFile(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads an artifact from r without validating it.
func Decode(r io.Reader) (Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	return a, nil
}

// compiled is a validated artifact with inputs mapped to FeatureNames order.
type compiled struct {
	kind  string
	order []int // order[j] is the FeatureNames index of artifact feature j
	reg   regressor
}

func (a Artifact) compile() (*compiled, error) {
	order, err := featureOrder(a.Features)
	if err != nil {
		return nil, err
	}

	var reg regressor
	switch strings.ToLower(a.Kind) {
	case KindLinear:
		if len(a.Coefficients) != len(a.Features) {
			return nil, fmt.Errorf("linear model has %d coefficients for %d features", len(a.Coefficients), len(a.Features))
		}
		if !common.IsFinite(a.Intercept) {
			return nil, errors.New("linear model has a non-finite intercept")
		}
		for _, c := range a.Coefficients {
			if !common.IsFinite(c) {
				return nil, errors.New("linear model has a non-finite coefficient")
			}
		}
		reg = linear{intercept: a.Intercept, coef: append([]float64(nil), a.Coefficients...)}
	case KindForest:
		if len(a.Trees) == 0 {
			return nil, errors.New("forest model has no trees")
		}
		for i, t := range a.Trees {
			if err := t.check(len(a.Features)); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
		reg = forest{trees: a.Trees}
	default:
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}

	return &compiled{kind: strings.ToLower(a.Kind), order: order, reg: reg}, nil
}

func featureOrder(features []string) ([]int, error) {
	if len(features) != len(airquality.FeatureNames) {
		return nil, fmt.Errorf("model expects %d features, want %d (%s)",
			len(features), len(airquality.FeatureNames), strings.Join(airquality.FeatureNames, ", "))
	}
	index := make(map[string]int, len(airquality.FeatureNames))
	for i, name := range airquality.FeatureNames {
		index[name] = i
	}
	order := make([]int, len(features))
	seen := make(map[string]bool, len(features))
	for j, name := range features {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("model feature %q is not a known input", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("model feature %q listed twice", name)
		}
		seen[name] = true
		order[j] = i
	}
	return order, nil
}

// check verifies every split references a valid feature and child node and
// that the tree is acyclic.
func (t Tree) check(nFeatures int) error {
	n := len(t.Nodes)
	if n == 0 {
		return errors.New("no nodes")
	}
	for i, nd := range t.Nodes {
		if nd.Left < 0 {
			if !common.IsFinite(nd.Value) {
				return fmt.Errorf("node %d: non-finite leaf value", i)
			}
			continue
		}
		if nd.Feature < 0 || nd.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, nd.Feature)
		}
		// Children must come after their parent, which rules out cycles.
		if nd.Left <= i || nd.Left >= n || nd.Right <= i || nd.Right >= n {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}
