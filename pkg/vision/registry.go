package vision

import (
	"fmt"
	"sort"
	"time"
)

// Options configures backend construction
type Options struct {
	// CascadePath points at the detector model file (pigo facefinder or Haar XML)
	CascadePath string
	// Model and URL select a vision-model backend
	Model string
	URL   string
	// Timeout bounds a single remote detection call
	Timeout time.Duration
	// Prompt overrides the face-locating prompt of model backends
	Prompt string
	// MinConfidence drops model-reported faces below it. Zero keeps the backend default.
	MinConfidence float64
}

// DetectorFactory builds a face detector from options
type DetectorFactory func(opts Options) (FaceDetector, error)

// FlowFactory builds a flow engine from options
type FlowFactory func(opts Options) (FlowEngine, error)

var (
	detectors   = make(map[string]DetectorFactory)
	flowEngines = make(map[string]FlowFactory)
)

// RegisterDetector makes a face detector backend available by name.
// It is meant to be called from init functions.
func RegisterDetector(name string, factory DetectorFactory) {
	detectors[name] = factory
}

// RegisterFlowEngine makes an optical-flow backend available by name.
func RegisterFlowEngine(name string, factory FlowFactory) {
	flowEngines[name] = factory
}

// NewDetector builds the named face detector
func NewDetector(name string, opts Options) (FaceDetector, error) {
	factory, ok := detectors[name]
	if !ok {
		return nil, fmt.Errorf("unknown face detector %q (available: %v)", name, Detectors())
	}
	return factory(opts)
}

// NewFlowEngine builds the named flow engine
func NewFlowEngine(name string, opts Options) (FlowEngine, error) {
	factory, ok := flowEngines[name]
	if !ok {
		return nil, fmt.Errorf("unknown flow engine %q (available: %v)", name, FlowEngines())
	}
	return factory(opts)
}

// Detectors lists registered face detector names
func Detectors() []string {
	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlowEngines lists registered flow engine names
func FlowEngines() []string {
	names := make([]string, 0, len(flowEngines))
	for name := range flowEngines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
