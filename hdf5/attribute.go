package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/volpack/internal/dtype"
	"github.com/robert-malhotra/volpack/internal/message"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
type Attribute struct {
	file *File
	msg  *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the attribute value; nil for a scalar.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// IsScalar returns true if the attribute is a scalar value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// Dtype describes the attribute's element type, e.g. "float64".
func (a *Attribute) Dtype() string {
	return a.msg.Datatype.String()
}

// Value decodes the attribute. Strings decode to string or []string,
// integers to int64 or []int64 and floats to float64 or []float64.
func (a *Attribute) Value() (any, error) {
	dt, n := a.msg.Datatype, a.NumElements()
	switch {
	case dt.IsString():
		vals, err := dtype.Strings(dt, a.msg.Data, n, a.file.offsetSize(), a.file)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.msg.Name, err)
		}
		return scalarOr(a, vals), nil
	case dt.IsInteger():
		vals, err := dtype.Numbers[int64](dt, a.msg.Data, n)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.msg.Name, err)
		}
		return scalarOr(a, vals), nil
	case dt.IsFloat():
		vals, err := dtype.Numbers[float64](dt, a.msg.Data, n)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.msg.Name, err)
		}
		return scalarOr(a, vals), nil
	}
	return nil, fmt.Errorf("%w: attribute %s has type %s", ErrUnsupported, a.msg.Name, dt)
}

// Strings decodes a string attribute as a slice, scalar or not.
func (a *Attribute) Strings() ([]string, error) {
	return dtype.Strings(a.msg.Datatype, a.msg.Data, a.NumElements(), a.file.offsetSize(), a.file)
}

// Float64s decodes a numeric attribute as a slice, scalar or not.
func (a *Attribute) Float64s() ([]float64, error) {
	return dtype.Numbers[float64](a.msg.Datatype, a.msg.Data, a.NumElements())
}

func scalarOr[T any](a *Attribute, vals []T) any {
	if a.IsScalar() && len(vals) == 1 {
		return vals[0]
	}
	return vals
}

func findAttr(f *File, attrs []*message.Attribute, name string) *Attribute {
	for _, m := range attrs {
		if m.Name == name {
			return &Attribute{file: f, msg: m}
		}
	}
	return nil
}

func wrapAttrs(f *File, attrs []*message.Attribute) []*Attribute {
	out := make([]*Attribute, len(attrs))
	for i, m := range attrs {
		out[i] = &Attribute{file: f, msg: m}
	}
	return out
}

// newAttributeMessage encodes value as an attribute. Strings are written as
// variable-length UTF-8 into a new global heap collection.
func (f *File) newAttributeMessage(name string, value any) (*message.Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("attribute name cannot be empty")
	}
	switch v := value.(type) {
	case string:
		return f.stringAttr(name, []string{v}, true)
	case []string:
		return f.stringAttr(name, v, false)
	case float64:
		return numericAttr(name, []float64{v}, true), nil
	case []float64:
		return numericAttr(name, v, false), nil
	case float32:
		return numericAttr(name, []float32{v}, true), nil
	case []float32:
		return numericAttr(name, v, false), nil
	case int:
		return numericAttr(name, []int64{int64(v)}, true), nil
	case []int:
		return numericAttr(name, v, false), nil
	case int64:
		return numericAttr(name, []int64{v}, true), nil
	case []int64:
		return numericAttr(name, v, false), nil
	case int32:
		return numericAttr(name, []int32{v}, true), nil
	case []int32:
		return numericAttr(name, v, false), nil
	case uint32:
		return numericAttr(name, []uint32{v}, true), nil
	case uint64:
		return numericAttr(name, []uint64{v}, true), nil
	case uint8:
		return numericAttr(name, []uint8{v}, true), nil
	case bool:
		var b uint8
		if v {
			b = 1
		}
		return numericAttr(name, []uint8{b}, true), nil
	}
	return nil, fmt.Errorf("%w: attribute %s of type %T", ErrUnsupported, name, value)
}

func numericAttr[T dtype.Number](name string, vals []T, scalar bool) *message.Attribute {
	dt, data := dtype.EncodeNumbers(vals)
	return message.NewAttribute(name, dt, dataspaceFor(len(vals), scalar), data)
}

func (f *File) stringAttr(name string, vals []string, scalar bool) (*message.Attribute, error) {
	data, err := f.writeStrings(vals)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", name, err)
	}
	dt := message.NewVarLenStringDatatype(message.CharsetUTF8)
	return message.NewAttribute(name, dt, dataspaceFor(len(vals), scalar), data), nil
}

func dataspaceFor(n int, scalar bool) *message.Dataspace {
	if scalar {
		return message.NewScalarDataspace()
	}
	return message.NewDataspace([]uint64{uint64(n)}, nil)
}

// setAttr replaces the attribute with the same name or appends a new one.
func setAttr(attrs []*message.Attribute, a *message.Attribute) []*message.Attribute {
	for i, m := range attrs {
		if m.Name == a.Name {
			attrs[i] = a
			return attrs
		}
	}
	return append(attrs, a)
}
