package sensor

import "fmt"

// DataRange describes one admissible sensing range as a closed interval with
// a resolution.
//
// CBOR encoding (integer keys): {1: min, 2: max, 3: resolution}.
type DataRange struct {
	Min        float64 `cbor:"1,keyasint"`
	Max        float64 `cbor:"2,keyasint"`
	Resolution float64 `cbor:"3,keyasint"`
}

func (r DataRange) String() string {
	return fmt.Sprintf("[%g, %g] @ %g", r.Min, r.Max, r.Resolution)
}

// DataRangeList is an ordered sequence of data ranges. The ordering is
// daemon-defined and index-addressable; see Channel.SetDataRangeIndex.
type DataRangeList []DataRange

// IntegerRange is a closed (min, max) integer interval, used for buffer
// interval and buffer size capability discovery.
//
// CBOR encoding (integer keys): {1: min, 2: max}.
type IntegerRange struct {
	Min int32 `cbor:"1,keyasint"`
	Max int32 `cbor:"2,keyasint"`
}

func (r IntegerRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// IntegerRangeList is an ordered sequence of integer ranges.
type IntegerRangeList []IntegerRange
