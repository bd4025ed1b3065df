// Package detection locates faces with a multimodal vision model and exposes
// the result as a vision.FaceDetector.
package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/vertical-cropper/pkg/client"
	"github.com/menta2k/vertical-cropper/pkg/llamacpp"
	"github.com/menta2k/vertical-cropper/pkg/ollama"
	"github.com/menta2k/vertical-cropper/pkg/processing"
	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// DefaultPrompt asks the model for every visible face as normalized boxes
const DefaultPrompt = `You are a face locator.

Return JSON only:
{
  "faces": [
    {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0, "confidence": 0.0}
  ]
}

HARD RULES
- One entry per visible human face, largest first.
- x,y is the top-left corner; w,h the size. All values normalized to [0,1] (NOT pixels).
- Boxes cover the face only (forehead to chin), not the whole body.
- If no face is visible, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// DefaultOllamaModel is used when no model is configured for the ollama backend
const DefaultOllamaModel = "llava"

// ErrUnparsableReply is returned when the model reply holds no usable JSON
var ErrUnparsableReply = errors.New("unparsable model reply")

// Face is one entry of the model reply
type Face struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

type reply struct {
	Faces []Face `json:"faces"`
}

// Detector handles face detection using vision models
type Detector struct {
	client        client.VisionClient
	model         string
	prompt        string
	processor     *processing.Processor
	timeout       time.Duration
	maxDim        int
	quality       int
	minConfidence float64
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, model string) *Detector {
	return &Detector{
		client:        c,
		model:         model,
		prompt:        DefaultPrompt,
		processor:     processing.NewProcessor(),
		timeout:       60 * time.Second,
		maxDim:        768,
		quality:       85,
		minConfidence: 0.3,
	}
}

// WithTimeout bounds each Detect call
func (d *Detector) WithTimeout(t time.Duration) *Detector {
	if t > 0 {
		d.timeout = t
	}
	return d
}

// WithPrompt replaces the face-locating prompt
func (d *Detector) WithPrompt(prompt string) *Detector {
	if prompt != "" {
		d.prompt = prompt
	}
	return d
}

// WithMinConfidence drops faces the model is less sure about
func (d *Detector) WithMinConfidence(c float64) *Detector {
	d.minConfidence = clamp(c, 0, 1)
	return d
}

func init() {
	vision.RegisterDetector("ollama", func(opts vision.Options) (vision.FaceDetector, error) {
		c, err := ollama.NewClient(opts.URL)
		if err != nil {
			return nil, err
		}
		model := opts.Model
		if model == "" {
			model = DefaultOllamaModel
		}
		return configure(NewDetector(c.WithTimeout(opts.Timeout), model), opts), nil
	})
	vision.RegisterDetector("llamacpp", func(opts vision.Options) (vision.FaceDetector, error) {
		c, err := llamacpp.NewClientWithTimeout(opts.URL, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return configure(NewDetector(c, opts.Model), opts), nil
	})
}

func configure(d *Detector, opts vision.Options) *Detector {
	d = d.WithTimeout(opts.Timeout).WithPrompt(opts.Prompt)
	if opts.MinConfidence > 0 {
		d = d.WithMinConfidence(opts.MinConfidence)
	}
	return d
}

// Detect implements vision.FaceDetector. The cascade tuning knobs do not apply
// to a model; only MinSize is honored. The model call is bounded by both ctx
// and the detector timeout.
func (d *Detector) Detect(ctx context.Context, img image.Image, params vision.DetectParams) ([]types.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, vision.ErrDegenerateFrame
	}

	data, err := d.processor.PrepareImageForModel(img, "jpg", d.maxDim, d.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	sent, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	raw, err := d.client.Query(ctx, d.model, d.prompt, data)
	if err != nil {
		return nil, err
	}

	faces, err := parseFaces(raw)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("model", d.model).
		Int("faces", len(faces)).
		Dur("elapsed", time.Since(start)).
		Msg("vision model replied")

	var out []types.Rectangle
	for _, f := range faces {
		if f.Confidence > 0 && f.Confidence < d.minConfidence {
			continue
		}
		box := normalizeBox(types.Box{X: f.X, Y: f.Y, W: f.W, H: f.H}, sent.Width, sent.Height)
		r := box.ToRectangle(bounds.Dx(), bounds.Dy())
		if r.Empty() || r.Width < params.MinSize.X || r.Height < params.MinSize.Y {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func parseFaces(raw string) ([]Face, error) {
	cleaned := client.SanitizeModelJSON(raw)
	if len(cleaned) == 0 || cleaned[0] != '{' {
		return nil, fmt.Errorf("%w: %q", ErrUnparsableReply, truncate(raw, 80))
	}
	var r reply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableReply, err)
	}
	return r.Faces, nil
}

// normalizeBox brings a box into [0,1] coordinates. Models sometimes answer in
// pixels of the image they were sent despite the prompt.
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}
	return types.Box{
		X: clamp(b.X, 0, 1),
		Y: clamp(b.Y, 0, 1),
		W: clamp(b.W, 0, 1),
		H: clamp(b.H, 0, 1),
	}
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
