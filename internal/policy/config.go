// Package policy implements the four built-in maintenance policies:
// data retention, storage reorder, compression and continuous-aggregate
// refresh. Each policy has a pure Read+Validate step shared by the
// administration API and the executor, and an execute step that acts
// through the catalog.
package policy

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"hypertide/internal/constants"
	"hypertide/internal/errs"
)

// Kind identifies which built-in policy a callable name maps to.
type Kind int

const (
	KindCustom Kind = iota
	KindRetention
	KindReorder
	KindCompression
	KindRefreshCagg
)

// KindOf maps a callable reference to its policy kind. Anything outside
// the internal schema is a custom job.
func KindOf(procSchema, procName string) Kind {
	if procSchema != constants.InternalSchema {
		return KindCustom
	}
	switch procName {
	case constants.PolicyRetention:
		return KindRetention
	case constants.PolicyReorder:
		return KindReorder
	case constants.PolicyCompression:
		return KindCompression
	case constants.PolicyRefreshCagg:
		return KindRefreshCagg
	default:
		return KindCustom
	}
}

// Offset is a lag relative to "now" on an open dimension: a duration for
// time-partitioned dimensions, a plain integer for integer-partitioned
// ones. JSON accepts a number ("drop_after": 1000) or a duration string
// ("drop_after": "168h").
type Offset struct {
	IsInteger bool
	Integer   int64
	Duration  time.Duration
}

func (o *Offset) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		o.IsInteger = true
		o.Integer = n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errs.InvalidParameterf("offset must be an integer or a duration string, got %s", data)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid duration %q", s), errs.ErrInvalidParameter)
	}
	o.IsInteger = false
	o.Duration = d
	return nil
}

func (o Offset) MarshalJSON() ([]byte, error) {
	if o.IsInteger {
		return json.Marshal(o.Integer)
	}
	return json.Marshal(o.Duration.String())
}

func (o Offset) String() string {
	if o.IsInteger {
		return strconv.FormatInt(o.Integer, 10)
	}
	return o.Duration.String()
}

// Config is the closed set of parsed job configurations. The concrete
// types below are the only implementations.
type Config interface {
	Kind() Kind
}

type RetentionConfig struct {
	HypertableID int64  `json:"hypertable_id"`
	DropAfter    Offset `json:"drop_after"`
}

func (*RetentionConfig) Kind() Kind { return KindRetention }

type ReorderConfig struct {
	HypertableID int64  `json:"hypertable_id"`
	IndexName    string `json:"index_name"`
}

func (*ReorderConfig) Kind() Kind { return KindReorder }

type CompressionConfig struct {
	HypertableID  int64  `json:"hypertable_id"`
	CompressAfter Offset `json:"compress_after"`
}

func (*CompressionConfig) Kind() Kind { return KindCompression }

type RefreshCaggConfig struct {
	MatHypertableID int64  `json:"mat_hypertable_id"`
	StartOffset     Offset `json:"start_offset"`
	EndOffset       Offset `json:"end_offset"`
}

func (*RefreshCaggConfig) Kind() Kind { return KindRefreshCagg }

// CustomConfig carries an arbitrary user document untouched.
type CustomConfig struct {
	Raw json.RawMessage
}

func (*CustomConfig) Kind() Kind { return KindCustom }

// Parse decodes a raw config document into its typed variant in one
// exhaustive step, enforcing required fields. It performs no catalog
// access; resolving ids to live handles is the validator's job.
func Parse(kind Kind, raw json.RawMessage) (Config, error) {
	switch kind {
	case KindRetention:
		var doc struct {
			HypertableID *int64  `json:"hypertable_id"`
			DropAfter    *Offset `json:"drop_after"`
		}
		if err := decode(raw, &doc); err != nil {
			return nil, err
		}
		if doc.HypertableID == nil {
			return nil, errs.InvalidParameterf("config must have hypertable_id")
		}
		if doc.DropAfter == nil {
			return nil, errs.InvalidParameterf("config must have drop_after")
		}
		return &RetentionConfig{HypertableID: *doc.HypertableID, DropAfter: *doc.DropAfter}, nil

	case KindReorder:
		var doc struct {
			HypertableID *int64  `json:"hypertable_id"`
			IndexName    *string `json:"index_name"`
		}
		if err := decode(raw, &doc); err != nil {
			return nil, err
		}
		if doc.HypertableID == nil {
			return nil, errs.InvalidParameterf("config must have hypertable_id")
		}
		if doc.IndexName == nil || *doc.IndexName == "" {
			return nil, errs.InvalidParameterf("config must have index_name")
		}
		return &ReorderConfig{HypertableID: *doc.HypertableID, IndexName: *doc.IndexName}, nil

	case KindCompression:
		var doc struct {
			HypertableID  *int64  `json:"hypertable_id"`
			CompressAfter *Offset `json:"compress_after"`
		}
		if err := decode(raw, &doc); err != nil {
			return nil, err
		}
		if doc.HypertableID == nil {
			return nil, errs.InvalidParameterf("config must have hypertable_id")
		}
		if doc.CompressAfter == nil {
			return nil, errs.InvalidParameterf("config must have compress_after")
		}
		return &CompressionConfig{HypertableID: *doc.HypertableID, CompressAfter: *doc.CompressAfter}, nil

	case KindRefreshCagg:
		var doc struct {
			MatHypertableID *int64  `json:"mat_hypertable_id"`
			StartOffset     *Offset `json:"start_offset"`
			EndOffset       *Offset `json:"end_offset"`
		}
		if err := decode(raw, &doc); err != nil {
			return nil, err
		}
		if doc.MatHypertableID == nil {
			return nil, errs.InvalidParameterf("config must have mat_hypertable_id")
		}
		if doc.StartOffset == nil {
			return nil, errs.InvalidParameterf("config must have start_offset")
		}
		if doc.EndOffset == nil {
			return nil, errs.InvalidParameterf("config must have end_offset")
		}
		return &RefreshCaggConfig{
			MatHypertableID: *doc.MatHypertableID,
			StartOffset:     *doc.StartOffset,
			EndOffset:       *doc.EndOffset,
		}, nil

	default:
		return &CustomConfig{Raw: raw}, nil
	}
}

func decode(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return errs.InvalidParameterf("config cannot be empty")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.Mark(errors.Wrap(err, "malformed config document"), errs.ErrInvalidParameter)
	}
	return nil
}
