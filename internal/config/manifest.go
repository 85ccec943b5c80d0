// Package config loads the demo CLI's task manifest: a small, deliberately
// closed set of built-in operations (sum, const, uppercase, concat, sleep)
// rather than a general-purpose scripting surface, since dynamic task
// generation is out of scope for the engine this manifest feeds.
package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskflow/internal/payload"
	"taskflow/internal/task"
	"taskflow/internal/tferr"
)

// ManifestTask is one task entry in a YAML manifest. Fields not relevant to
// Op are ignored: one struct carries every task kind's optional fields
// rather than a tagged union, keeping the YAML shape flat.
type ManifestTask struct {
	Name      string         `yaml:"name"`
	Op        string         `yaml:"op"`
	Inputs    []string       `yaml:"inputs,omitempty"`
	Output    string         `yaml:"output,omitempty"`
	Values    map[string]any `yaml:"values,omitempty"`
	Seconds   float64        `yaml:"seconds,omitempty"`
	Separator string         `yaml:"separator,omitempty"`
	Cache     *bool          `yaml:"cache,omitempty"`
}

// Manifest is the top-level YAML document shape.
type Manifest struct {
	Tasks []ManifestTask `yaml:"tasks"`
}

// Load reads and parses a manifest file from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Build translates a Manifest into the task list a Pool accepts, resolving
// each entry's Op against the built-in registry.
func Build(m *Manifest) ([]task.Task, error) {
	out := make([]task.Task, 0, len(m.Tasks))
	for _, mt := range m.Tasks {
		factory, ok := builtinOps[mt.Op]
		if !ok {
			return nil, tferr.BadArgument(fmt.Sprintf("task %q: unknown op %q", mt.Name, mt.Op))
		}
		body, err := factory(mt)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", mt.Name, err)
		}
		d := task.NewDeclared(mt.Name, mt.Inputs, body).WithID(mt.Name + ":" + mt.Op)
		if mt.Cache != nil {
			d = d.WithCache(*mt.Cache)
		}
		out = append(out, d)
	}
	return out, nil
}

type opFactory func(ManifestTask) (task.Body, error)

var builtinOps = map[string]opFactory{
	"const":     buildConst,
	"sum":       buildSum,
	"uppercase": buildUppercase,
	"concat":    buildConcat,
	"sleep":     buildSleep,
}

// const produces a fixed fragment from Values, ignoring any declared
// inputs; it is how a manifest seeds the payload.
func buildConst(mt ManifestTask) (task.Body, error) {
	values := mt.Values
	return func(_ context.Context, _ map[string]any) (any, error) {
		return payload.Fragment(values), nil
	}, nil
}

// sum adds together the numeric values of every declared input, emitting
// the result under Output.
func buildSum(mt ManifestTask) (task.Body, error) {
	if mt.Output == "" {
		return nil, fmt.Errorf("op sum requires output")
	}
	out := mt.Output
	return func(_ context.Context, inputs map[string]any) (any, error) {
		total := 0.0
		for _, key := range mt.Inputs {
			n, err := toFloat(inputs[key])
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", key, err)
			}
			total += n
		}
		return payload.Fragment{out: total}, nil
	}, nil
}

// uppercase expects exactly one input and emits its upper-cased string
// form under Output.
func buildUppercase(mt ManifestTask) (task.Body, error) {
	if len(mt.Inputs) != 1 {
		return nil, fmt.Errorf("op uppercase requires exactly one input")
	}
	if mt.Output == "" {
		return nil, fmt.Errorf("op uppercase requires output")
	}
	in, out := mt.Inputs[0], mt.Output
	return func(_ context.Context, inputs map[string]any) (any, error) {
		s, ok := inputs[in].(string)
		if !ok {
			return nil, fmt.Errorf("input %q is not a string", in)
		}
		return payload.Fragment{out: strings.ToUpper(s)}, nil
	}, nil
}

// concat joins the string form of every declared input, in declaration
// order, with Separator (default ""), emitting the result under Output.
func buildConcat(mt ManifestTask) (task.Body, error) {
	if mt.Output == "" {
		return nil, fmt.Errorf("op concat requires output")
	}
	inputs, out, sep := mt.Inputs, mt.Output, mt.Separator
	return func(_ context.Context, vals map[string]any) (any, error) {
		parts := make([]string, 0, len(inputs))
		for _, key := range inputs {
			parts = append(parts, fmt.Sprintf("%v", vals[key]))
		}
		return payload.Fragment{out: strings.Join(parts, sep)}, nil
	}, nil
}

// sleep blocks for Seconds, then passes every declared input straight
// through unchanged. It exists to give the demo CLI a task with
// observable wall-clock cost for exercising the parallel executor.
func buildSleep(mt ManifestTask) (task.Body, error) {
	d := time.Duration(mt.Seconds * float64(time.Second))
	inputs := mt.Inputs
	return func(ctx context.Context, vals map[string]any) (any, error) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		frag := make(payload.Fragment, len(inputs))
		for _, key := range inputs {
			frag[key] = vals[key]
		}
		return frag, nil
	}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}

// Names returns the sorted list of registered built-in operation names.
func Names() []string {
	names := make([]string, 0, len(builtinOps))
	for k := range builtinOps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
