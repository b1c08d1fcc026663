package serializer

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// BatchResult holds the decoded messages of a frame in order, plus the type
// codes of entries that were skipped because the registry did not know them.
type BatchResult struct {
	Messages []schema.Message
	Skipped  []uint16
}

// EncodeBatch serializes msgs into one frame.
func (s *Serializer) EncodeBatch(msgs []schema.Message, comp frame.Compression) (frame.Frame, error) {
	entries := make([][]byte, 0, len(msgs))
	for i, msg := range msgs {
		b, err := s.Serialize(msg)
		if err != nil {
			return frame.Frame{}, fmt.Errorf("serializer: batch entry %d: %w", i, err)
		}
		entries = append(entries, b)
	}
	return frame.Frame{Header: frame.Header{Compression: comp}, Entries: entries}, nil
}

// DecodeBatch decodes every entry of f. Entries with an unknown type code
// are skipped and logged; any other failure aborts the batch.
func (d *Deserializer) DecodeBatch(f frame.Frame) (BatchResult, error) {
	res := BatchResult{Messages: make([]schema.Message, 0, len(f.Entries))}
	for i, entry := range f.Entries {
		msg, err := d.Deserialize(entry)
		if err != nil {
			var ute registry.UnknownTypeError
			if errors.As(err, &ute) {
				log.Warn().Int("entry", i).Uint16("type_code", ute.TypeCode).Msg("skipping unknown type in batch")
				res.Skipped = append(res.Skipped, ute.TypeCode)
				continue
			}
			return res, fmt.Errorf("serializer: batch entry %d: %w", i, err)
		}
		res.Messages = append(res.Messages, msg)
	}
	return res, nil
}

// WriteBatch encodes msgs in the factory scheme and writes one frame to w.
func (f *Factory) WriteBatch(w io.Writer, msgs []schema.Message, comp frame.Compression, limits frame.Limits) error {
	s := f.pool.Get().(*Serializer)
	defer f.pool.Put(s)
	fr, err := s.EncodeBatch(msgs, comp)
	if err != nil {
		return err
	}
	return frame.WriteFrame(w, fr, limits)
}

// ReadBatch reads one frame from r and decodes it. io.EOF is returned
// unchanged when r has no further frames.
func (f *Factory) ReadBatch(r io.Reader, limits frame.Limits) (BatchResult, error) {
	fr, err := frame.ReadFrame(r, limits)
	if err != nil {
		return BatchResult{}, err
	}
	return f.CreateDeserializer().DecodeBatch(fr)
}
