package trace

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/vm"
)

// cborEncMode encodes records canonically so identical runs produce
// identical bytes apart from their run IDs.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Record is one recorded step. A run that faults ends with a record whose
// Fault is set and whose Stack is empty.
type Record struct {
	RunID  uuid.UUID `cbor:"1,keyasint"`
	Seq    uint64    `cbor:"2,keyasint"`
	Offset int       `cbor:"3,keyasint"`
	Op     string    `cbor:"4,keyasint"`
	Stack  []Slot    `cbor:"5,keyasint,omitempty"`
	Fault  string    `cbor:"6,keyasint,omitempty"`
	Chunk  [32]byte  `cbor:"7,keyasint"` // content hash of the running chunk
}

type run struct {
	id    uuid.UUID
	chunk [32]byte
	seq   uint64
}

// Recorder writes a stream of CBOR records, one per executed instruction.
// Nested runs started from another tracer get their own run ID.
type Recorder struct {
	enc  *cbor.Encoder
	runs []run
	err  error
}

// NewRecorder returns a recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cborEncMode.NewEncoder(w)}
}

// Err returns the first write error, if any. Writing stops after it.
func (r *Recorder) Err() error {
	return r.err
}

// RunID returns the ID of the innermost active run.
func (r *Recorder) RunID() (uuid.UUID, bool) {
	if len(r.runs) == 0 {
		return uuid.Nil, false
	}
	return r.runs[len(r.runs)-1].id, true
}

func (r *Recorder) BeginRun(chunk *bytecode.Chunk) {
	r.runs = append(r.runs, run{id: uuid.New(), chunk: chunk.Hash()})
}

func (r *Recorder) Step(ev vm.StepEvent) {
	r.write(Record{
		Offset: ev.Offset,
		Op:     ev.Op.String(),
		Stack:  Slots(ev.Stack),
	})
}

func (r *Recorder) EndRun(err error) {
	if err != nil {
		rec := Record{Offset: -1, Fault: err.Error()}
		var f *vm.Fault
		if errors.As(err, &f) {
			rec.Offset = f.Offset
			rec.Op = f.Op.String()
		}
		r.write(rec)
	}
	if len(r.runs) > 0 {
		r.runs = r.runs[:len(r.runs)-1]
	}
}

func (r *Recorder) write(rec Record) {
	if r.err != nil || len(r.runs) == 0 {
		return
	}
	cur := &r.runs[len(r.runs)-1]
	rec.RunID = cur.id
	rec.Chunk = cur.chunk
	rec.Seq = cur.seq
	cur.seq++
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("trace: write record: %w", err)
	}
}

// ReadRecords decodes every record in a recorded stream.
func ReadRecords(rd io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(rd)
	var out []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("trace: read record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
