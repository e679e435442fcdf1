// Package decoder defines the contract between the scan loop and a symbol decoder.
package decoder

import (
	"fmt"
	"strings"

	"qrscanner/internal/service/raster"
)

// Point is a pixel position inside the raster.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Location is the corner set of a decoded symbol, in raster coordinates.
type Location struct {
	TopLeft     Point `json:"topLeftCorner"`
	TopRight    Point `json:"topRightCorner"`
	BottomRight Point `json:"bottomRightCorner"`
	BottomLeft  Point `json:"bottomLeftCorner"`
}

// Symbol is one decoded symbol. Two symbols are the same detection when their payloads match.
type Symbol struct {
	Payload  string
	Version  int
	Location Location
}

// Decoder turns a raster into a symbol. A nil symbol with a nil error means nothing was found.
type Decoder interface {
	Decode(buf raster.Buffer) (*Symbol, error)
}

// Func adapts a plain function to Decoder.
type Func func(buf raster.Buffer) (*Symbol, error)

func (f Func) Decode(buf raster.Buffer) (*Symbol, error) {
	return f(buf)
}

// InversionMode selects which pixel interpretations are tried.
type InversionMode int

const (
	InversionNormal InversionMode = iota
	InversionInverted
	InversionBoth
)

func (m InversionMode) String() string {
	switch m {
	case InversionNormal:
		return "normal"
	case InversionInverted:
		return "inverted"
	case InversionBoth:
		return "both"
	}
	return fmt.Sprintf("InversionMode(%d)", int(m))
}

// ParseInversionMode accepts normal, inverted (or invert) and both. Anything else is an error.
func ParseInversionMode(s string) (InversionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "dontinvert":
		return InversionNormal, nil
	case "inverted", "invert", "onlyinvert":
		return InversionInverted, nil
	case "both", "attemptboth":
		return InversionBoth, nil
	}
	return InversionBoth, fmt.Errorf("unknown inversion mode %q", s)
}

// Attempts lists the interpretations in the order they are tried.
func (m InversionMode) Attempts() []bool {
	switch m {
	case InversionInverted:
		return []bool{true}
	case InversionBoth:
		return []bool{false, true}
	}
	return []bool{false}
}

// DecodeFault wraps anything the decoder raised while reading a raster.
type DecodeFault struct {
	Err   error
	Panic interface{}
}

func (f *DecodeFault) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("decoder panicked: %v", f.Panic)
	}
	return fmt.Sprintf("decode fault: %v", f.Err)
}

func (f *DecodeFault) Unwrap() error {
	return f.Err
}

// Safe calls d and converts both returned errors and panics into a *DecodeFault,
// so a bad frame can never take the scan loop down.
func Safe(d Decoder, buf raster.Buffer) (sym *Symbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			sym = nil
			err = &DecodeFault{Panic: r}
		}
	}()

	sym, err = d.Decode(buf)
	if err != nil {
		if _, ok := err.(*DecodeFault); !ok {
			err = &DecodeFault{Err: err}
		}
		return nil, err
	}
	return sym, nil
}
