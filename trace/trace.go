// Package trace reads and writes branch traces.
//
// A trace lists one resolved conditional branch per line as a hexadecimal
// address followed by its outcome:
//
//	0x40b1c8 1
//	0x40b1d0 0
//
// The 0x prefix is optional. Blank lines and lines starting with '#' are
// skipped. Files ending in .gz or .bz2 are decompressed while reading.
package trace

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/bpsim/predictor"
)

// Record is one resolved branch.
type Record struct {
	// PC is the address of the branch instruction.
	PC uint32
	// Outcome is the resolved direction.
	Outcome predictor.Outcome
}

// Reader parses trace records from a text stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader that parses r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rec, err := parseLine(text)
		if err != nil {
			return Record{}, errors.Wrapf(err, "line %d", r.line)
		}
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, errors.Wrap(err, "read trace")
	}
	return Record{}, io.EOF
}

func parseLine(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return Record{}, errors.Errorf("expected \"<pc> <outcome>\", got %q", text)
	}

	addr := strings.TrimPrefix(strings.TrimPrefix(fields[0], "0x"), "0X")
	pc, err := strconv.ParseUint(addr, 16, 32)
	if err != nil {
		return Record{}, errors.Errorf("invalid branch address %q", fields[0])
	}

	var outcome predictor.Outcome
	switch fields[1] {
	case "0":
		outcome = predictor.NotTaken
	case "1":
		outcome = predictor.Taken
	default:
		return Record{}, errors.Errorf("invalid outcome %q", fields[1])
	}

	return Record{PC: uint32(pc), Outcome: outcome}, nil
}

// File is a Reader over an open trace file.
type File struct {
	*Reader
	closers []io.Closer
}

// Open opens a trace file, decompressing it when the name ends in .gz or
// .bz2.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trace")
	}

	tf := &File{closers: []io.Closer{f}}
	var src io.Reader = f

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "open gzip trace %s", path)
		}
		tf.closers = append(tf.closers, gz)
		src = gz
	case strings.HasSuffix(path, ".bz2"):
		src = bzip2.NewReader(f)
	}

	tf.Reader = NewReader(src)
	return tf, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Load reads a whole trace file into memory.
func Load(path string) ([]Record, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var records []Record
	for {
		rec, err := f.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		records = append(records, rec)
	}
}

// Slice replays an in-memory trace.
type Slice struct {
	records []Record
	pos     int
}

// NewSlice returns a source over records.
func NewSlice(records []Record) *Slice {
	return &Slice{records: records}
}

// Next returns the next record, or io.EOF after the last one.
func (s *Slice) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Len returns the total number of records.
func (s *Slice) Len() int {
	return len(s.records)
}

// Writer emits records in the trace text format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer that buffers output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	_, err := fmt.Fprintf(w.w, "0x%08x %d\n", rec.PC, rec.Outcome)
	return err
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Save writes records to path, gzip-compressed when the name ends in .gz.
func Save(path string, records []Record) (err error) {
	if strings.HasSuffix(path, ".bz2") {
		return errors.Errorf("cannot write bzip2 trace %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create trace")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var dst io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		dst = gz
	}

	w := NewWriter(dst)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "write trace")
		}
	}
	return w.Flush()
}
