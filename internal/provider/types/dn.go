package types

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
)

var (
	_ basetypes.StringTypable                    = DNType{}
	_ basetypes.StringValuableWithSemanticEquals = DNValue{}
)

// DNType is the string type of attributes holding a single distinguished
// name. Values read back from the directory that differ from the
// configuration only in case or spacing do not show as drift.
type DNType struct {
	basetypes.StringType
}

func (t DNType) String() string {
	return "types.DNType"
}

func (t DNType) ValueType(context.Context) attr.Value {
	return DNValue{}
}

func (t DNType) Equal(o attr.Type) bool {
	other, ok := o.(DNType)
	return ok && t.StringType.Equal(other.StringType)
}

func (t DNType) ValueFromString(_ context.Context, in basetypes.StringValue) (basetypes.StringValuable, diag.Diagnostics) {
	return DNValue{StringValue: in}, nil
}

func (t DNType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	v, err := t.StringType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	s, ok := v.(basetypes.StringValue)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for %s", v, t)
	}
	return DNValue{StringValue: s}, nil
}

// DNValue holds a distinguished name.
type DNValue struct {
	basetypes.StringValue
}

func NewDNValue(dn string) DNValue {
	return DNValue{StringValue: basetypes.NewStringValue(dn)}
}

func NewDNNull() DNValue {
	return DNValue{StringValue: basetypes.NewStringNull()}
}

func NewDNUnknown() DNValue {
	return DNValue{StringValue: basetypes.NewStringUnknown()}
}

func (v DNValue) Type(context.Context) attr.Type {
	return DNType{}
}

func (v DNValue) Equal(o attr.Value) bool {
	other, ok := o.(DNValue)
	return ok && v.StringValue.Equal(other.StringValue)
}

// StringSemanticEquals applies SameDN to known values.
func (v DNValue) StringSemanticEquals(_ context.Context, newValuable basetypes.StringValuable) (bool, diag.Diagnostics) {
	other, ok := newValuable.(DNValue)
	if !ok {
		return false, semanticEqualityError("types.DNValue", newValuable)
	}

	if v.IsNull() || v.IsUnknown() || other.IsNull() || other.IsUnknown() {
		return v.Equal(other), nil
	}
	return SameDN(v.ValueString(), other.ValueString()), nil
}
