package messages

import "google.golang.org/protobuf/encoding/protowire"

// ResultKind discriminates the oneof result carried by a completable entry
// or completion notification.
type ResultKind int

const (
	ResultUnset ResultKind = iota
	ResultEmpty
	ResultValue
	ResultFailure
)

// EntryResult is the generic {empty|value|failure} oneof shape shared by
// almost every completable message in the protocol (get-state, promises,
// sleep, call, run, awakeables, ...). Not every message uses every tag: the
// emptyTag/valueTag/failureTag arguments passed to appendTo/parse let each
// caller line its own protobuf field numbers.
type EntryResult struct {
	Kind    ResultKind
	Value   []byte
	Failure *Failure
}

// appendTo serializes the result using the given field numbers. A zero tag
// means "this message has no such variant" (e.g. CompleteAwakeable has no
// Empty variant).
func (r EntryResult) appendTo(b []byte, emptyTag, valueTag, failureTag protowire.Number) []byte {
	switch r.Kind {
	case ResultEmpty:
		if emptyTag != 0 {
			b = appendMessageField(b, emptyTag, nil)
		}
	case ResultValue:
		if valueTag != 0 {
			b = appendBytesField(b, valueTag, r.Value)
		}
	case ResultFailure:
		if failureTag != 0 {
			b = appendFailure(b, failureTag, r.Failure)
		}
	}
	return b
}

// parseResultField handles a single oneof-tagged field during decode,
// reporting whether num was consumed as part of the result oneof.
func parseResultField(num protowire.Number, typ protowire.Type, data []byte, emptyTag, valueTag, failureTag protowire.Number) (consumed int, result EntryResult, matched bool, err error) {
	switch {
	case num == emptyTag && emptyTag != 0:
		_, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, result, true, protowire.ParseError(n)
		}
		return n, EntryResult{Kind: ResultEmpty}, true, nil
	case num == valueTag && valueTag != 0:
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, result, true, protowire.ParseError(n)
		}
		return n, EntryResult{Kind: ResultValue, Value: append([]byte(nil), v...)}, true, nil
	case num == failureTag && failureTag != 0:
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, result, true, protowire.ParseError(n)
		}
		f, ferr := parseFailure(v)
		if ferr != nil {
			return 0, result, true, ferr
		}
		return n, EntryResult{Kind: ResultFailure, Failure: f}, true, nil
	default:
		_ = typ
		return 0, result, false, nil
	}
}
