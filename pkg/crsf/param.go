package crsf

import (
	"encoding/binary"
	"math"
	"strings"
)

// ParamType tags the decoded value variant of a parameter entry.
type ParamType byte

// Parameter entry types. Types 0 through 5 are the deprecated fixed
// width integers, signed when odd.
const (
	ParamUint8         ParamType = 0
	ParamInt8          ParamType = 1
	ParamUint16        ParamType = 2
	ParamInt16         ParamType = 3
	ParamUint32        ParamType = 4
	ParamInt32         ParamType = 5
	ParamFloat         ParamType = 8
	ParamTextSelection ParamType = 9
	ParamString        ParamType = 10
	ParamFolder        ParamType = 11
	ParamInfo          ParamType = 12
	ParamCommand       ParamType = 13
	// ParamOutOfRange is the sentinel the device answers for an index
	// it does not have. The published entry carries no value.
	ParamOutOfRange ParamType = 127
)

const (
	paramHiddenBit = 0x80
	paramTypeMask  = 0x7F
)

// Value is the decoded payload of a parameter entry. Exactly one of
// the concrete types below implements it per entry.
type Value interface {
	isValue()
}

// NumericValue holds a deprecated fixed-width integer entry.
type NumericValue struct {
	Value int64
	Min   int64
	Max   int64
	Unit  string
}

// FloatValue holds a fixed-point entry. The raw fields scale by
// 10^-DecimalPoint for display.
type FloatValue struct {
	Value        int32
	Min          int32
	Max          int32
	Default      int32
	DecimalPoint uint8
	Step         int32
	Unit         string
}

// Scaled applies the decimal point to a raw field.
func (v FloatValue) Scaled(raw int32) float64 {
	return float64(raw) / math.Pow10(int(v.DecimalPoint))
}

// Display returns the scaled current value.
func (v FloatValue) Display() float64 {
	return v.Scaled(v.Value)
}

// TextSelectionValue holds a selection entry. Value, Min, Max and
// Default index into Options.
type TextSelectionValue struct {
	Options []string
	Value   uint8
	Min     uint8
	Max     uint8
	Default uint8
	Unit    string
}

// Selected returns the option named by Value, or "" when out of range.
func (v TextSelectionValue) Selected() string {
	if int(v.Value) < len(v.Options) {
		return v.Options[v.Value]
	}
	return ""
}

// StringValue holds a free-form string entry.
type StringValue struct {
	Value     string
	MaxLength uint8
}

// FolderValue holds a folder entry listing its children.
type FolderValue struct {
	Children []string
}

// InfoValue holds a read-only informational entry.
type InfoValue struct {
	Text string
}

// CommandValue holds a command entry status.
type CommandValue struct {
	Status  uint8
	Timeout uint8
	Text    string
}

// RawValue holds the undecoded bytes of an entry that failed to parse,
// so the slot is not lost.
type RawValue struct {
	Data []byte
}

func (NumericValue) isValue()       {}
func (FloatValue) isValue()         {}
func (TextSelectionValue) isValue() {}
func (StringValue) isValue()        {}
func (FolderValue) isValue()        {}
func (InfoValue) isValue()          {}
func (CommandValue) isValue()       {}
func (RawValue) isValue()           {}

// Parameter is one published entry of the device parameter catalogue.
type Parameter struct {
	Index  uint8
	Folder uint8
	Type   ParamType
	Hidden bool
	Name   string
	Value  Value
}

// ParseParameter decodes a fully reassembled parameter entry.
func ParseParameter(index uint8, data []byte) (*Parameter, error) {
	r := newReader(data)
	folder, err := r.u8()
	if err != nil {
		return nil, err
	}
	if folder == '\t' {
		// Some devices emit a stray tab instead of the root folder id.
		folder = 0
	}
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	p := &Parameter{
		Index:  index,
		Folder: folder,
		Type:   ParamType(tag & paramTypeMask),
		Hidden: tag&paramHiddenBit != 0,
	}
	if p.Type == ParamOutOfRange {
		return p, nil
	}
	if p.Name, err = r.cstr(); err != nil {
		return nil, err
	}

	switch p.Type {
	case ParamUint8, ParamInt8, ParamUint16, ParamInt16, ParamUint32, ParamInt32:
		p.Value, err = parseNumeric(r, p.Type)
	case ParamFloat:
		p.Value, err = parseFloat(r)
	case ParamTextSelection:
		p.Value, err = parseTextSelection(r)
	case ParamString:
		p.Value, err = parseString(r)
	case ParamFolder:
		p.Value, err = parseFolder(r)
	case ParamInfo:
		p.Value, err = parseInfo(r)
	case ParamCommand:
		p.Value, err = parseCommand(r)
	default:
		err = ErrDecodeFailure
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseNumeric(r *reader, t ParamType) (Value, error) {
	width := 1 << (byte(t) >> 1)
	signed := byte(t)&1 != 0
	var v NumericValue
	var err error
	if v.Value, err = r.intBE(width, signed); err != nil {
		return nil, err
	}
	if v.Min, err = r.intBE(width, signed); err != nil {
		return nil, err
	}
	if v.Max, err = r.intBE(width, signed); err != nil {
		return nil, err
	}
	if v.Unit, err = r.cstr(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseFloat(r *reader) (Value, error) {
	var v FloatValue
	var err error
	if v.Value, err = r.i32le(); err != nil {
		return nil, err
	}
	if v.Min, err = r.i32le(); err != nil {
		return nil, err
	}
	if v.Max, err = r.i32le(); err != nil {
		return nil, err
	}
	if v.Default, err = r.i32le(); err != nil {
		return nil, err
	}
	// The decimal point byte sits between the default and step fields.
	if v.DecimalPoint, err = r.u8(); err != nil {
		return nil, err
	}
	if v.Step, err = r.i32le(); err != nil {
		return nil, err
	}
	if v.Unit, err = r.cstr(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseTextSelection(r *reader) (Value, error) {
	var v TextSelectionValue
	if b, ok := r.peek(); ok && b == 0 {
		// Leading NUL means an absent options set.
		r.skip(1)
		return v, nil
	}
	opts, err := r.cstr()
	if err != nil {
		return nil, err
	}
	v.Options = strings.Split(opts, ";")
	if v.Value, err = r.u8(); err != nil {
		return nil, err
	}
	if v.Min, err = r.u8(); err != nil {
		return nil, err
	}
	if v.Max, err = r.u8(); err != nil {
		return nil, err
	}
	if v.Default, err = r.u8(); err != nil {
		return nil, err
	}
	v.Unit = strings.TrimRight(string(r.rest()), "\x00")
	return v, nil
}

func parseString(r *reader) (Value, error) {
	var v StringValue
	var err error
	if v.Value, err = r.cstr(); err != nil {
		return nil, err
	}
	if v.MaxLength, err = r.u8(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseFolder(r *reader) (Value, error) {
	var v FolderValue
	if r.remaining() < 2 {
		// Some devices omit the child list entirely.
		return v, nil
	}
	children, err := r.cstr()
	if err != nil {
		return nil, err
	}
	if children != "" {
		v.Children = strings.Split(children, ";")
	}
	return v, nil
}

func parseInfo(r *reader) (Value, error) {
	text, err := r.cstr()
	if err != nil {
		return nil, err
	}
	return InfoValue{Text: text}, nil
}

func parseCommand(r *reader) (Value, error) {
	var v CommandValue
	var err error
	if v.Status, err = r.u8(); err != nil {
		return v, nil
	}
	if v.Timeout, err = r.u8(); err != nil {
		return v, nil
	}
	if text, err := r.cstr(); err == nil {
		v.Text = text
	}
	return v, nil
}

// reader walks a parameter buffer with an advancing cursor.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) rest() []byte {
	rest := r.data[r.pos:]
	r.pos = len(r.data)
	return rest
}

func (r *reader) peek() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	return r.data[r.pos], true
}

func (r *reader) skip(n int) {
	r.pos += n
}

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) cstr() (string, error) {
	end := r.pos
	for ; end < len(r.data); end++ {
		if r.data[end] == 0 {
			s := string(r.data[r.pos:end])
			r.pos = end + 1
			return s, nil
		}
	}
	return "", ErrTruncated
}

func (r *reader) intBE(width int, signed bool) (int64, error) {
	if r.remaining() < width {
		return 0, ErrTruncated
	}
	var u uint64
	for i := 0; i < width; i++ {
		u = u<<8 | uint64(r.data[r.pos+i])
	}
	r.pos += width
	if signed {
		shift := uint(64 - width*8)
		return int64(u<<shift) >> shift, nil
	}
	return int64(u), nil
}

func (r *reader) i32le() (int32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncated
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}
