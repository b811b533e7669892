package source

import (
	"context"
	"encoding/json"

	"github.com/poiesic/recall/core"
)

// JSONSource ingests structured records: one chunk per record, with
// the record serialized back to compact JSON as the chunk text.
type JSONSource struct {
	base
	records  []map[string]any
	pickKeys []string
}

var _ Source = (*JSONSource)(nil)

// JSONOption configures a JSONSource.
type JSONOption func(*JSONSource)

// WithPickKeys restricts embedding to the named record fields.
// Fields absent from a record are skipped.
func WithPickKeys(keys ...string) JSONOption {
	return func(s *JSONSource) {
		s.pickKeys = keys
	}
}

// NewJSON creates a source from raw JSON data holding either a single
// object or an array of objects. The unique key is derived from the
// normalized JSON text.
func NewJSON(data []byte, opts ...JSONOption) (*JSONSource, error) {
	records, err := decodeRecords(data)
	if err != nil {
		return nil, err
	}

	display := truncateCenter(core.NormalizeText(string(data)), 50)
	s := &JSONSource{
		base: newBase("JSONSource", core.NormalizeText(string(data)), map[string]string{
			"source": display,
		}),
		records: records,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func decodeRecords(data []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []map[string]any{single}, nil
}

// Chunks yields one raw chunk per record.
func (s *JSONSource) Chunks(ctx context.Context) Stream {
	return func(yield func(*core.RawChunk, error) bool) {
		for _, record := range s.records {
			subset := record
			if len(s.pickKeys) > 0 {
				subset = make(map[string]any, len(s.pickKeys))
				for _, key := range s.pickKeys {
					if value, ok := record[key]; ok {
						subset[key] = value
					}
				}
			}

			encoded, err := json.Marshal(subset)
			if err != nil {
				yield(nil, err)
				return
			}

			chunk := &core.RawChunk{
				PageContent: string(encoded),
				Metadata: map[string]string{
					"type":   s.sourceType,
					"source": s.metadata["source"],
				},
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
