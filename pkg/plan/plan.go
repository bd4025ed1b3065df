// Package plan records the crop window chosen for every frame so a run can be
// inspected or replayed. A plan file is a msgpack stream: one Header followed
// by one Entry per frame.
package plan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// Header describes the run a plan belongs to
type Header struct {
	RunID  string     `msgpack:"run_id"`
	Mode   types.Mode `msgpack:"mode"`
	Width  int        `msgpack:"width"`
	Height int        `msgpack:"height"`
	FPS    float64    `msgpack:"fps"`
	Aspect float64    `msgpack:"aspect"`
}

// Entry is the crop window of one frame
type Entry struct {
	Frame int `msgpack:"frame"`
	X     int `msgpack:"x"`
	Y     int `msgpack:"y"`
	W     int `msgpack:"w"`
	H     int `msgpack:"h"`
}

// Window returns the entry as a rectangle
func (e Entry) Window() types.Rectangle {
	return types.Rectangle{X: e.X, Y: e.Y, Width: e.W, Height: e.H}
}

// Recorder appends entries to a plan stream
type Recorder struct {
	buf     *bufio.Writer
	enc     *msgpack.Encoder
	closer  io.Closer
	entries int
}

// NewRecorder writes the header to w and returns a recorder for the entries
func NewRecorder(w io.Writer, header Header) (*Recorder, error) {
	buf := bufio.NewWriter(w)
	r := &Recorder{buf: buf, enc: msgpack.NewEncoder(buf)}
	if err := r.enc.Encode(&header); err != nil {
		return nil, fmt.Errorf("failed to write plan header: %w", err)
	}
	return r, nil
}

// Create creates a plan file at path
func Create(path string, header Header) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan file: %w", err)
	}
	r, err := NewRecorder(f, header)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Record appends the window of one frame
func (r *Recorder) Record(frame int, window types.Rectangle) error {
	entry := Entry{Frame: frame, X: window.X, Y: window.Y, W: window.Width, H: window.Height}
	if err := r.enc.Encode(&entry); err != nil {
		return fmt.Errorf("failed to record frame %d: %w", frame, err)
	}
	r.entries++
	return nil
}

// Entries returns the number of recorded frames
func (r *Recorder) Entries() int {
	return r.entries
}

// Close flushes buffered entries and closes the underlying file, if any
func (r *Recorder) Close() error {
	err := r.buf.Flush()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Plan is a decoded plan stream
type Plan struct {
	Header  Header
	Entries []Entry
}

// Read decodes a plan stream
func Read(r io.Reader) (*Plan, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))

	p := &Plan{}
	if err := dec.Decode(&p.Header); err != nil {
		return nil, fmt.Errorf("failed to read plan header: %w", err)
	}
	for {
		// Only a clean boundary between entries ends the stream.
		if _, err := dec.PeekCode(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read plan entry %d: %w", len(p.Entries), err)
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to read plan entry %d: %w", len(p.Entries), err)
		}
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

// Load reads the plan file at path
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// WindowAt returns the window recorded for frame
func (p *Plan) WindowAt(frame int) (types.Rectangle, bool) {
	if frame >= 0 && frame < len(p.Entries) && p.Entries[frame].Frame == frame {
		return p.Entries[frame].Window(), true
	}
	for _, e := range p.Entries {
		if e.Frame == frame {
			return e.Window(), true
		}
	}
	return types.Rectangle{}, false
}
