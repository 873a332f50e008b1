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
	_ basetypes.SetTypable                    = DNSetType{}
	_ basetypes.SetValuableWithSemanticEquals = DNSetValue{}
)

// DNSetType is the set type of attributes holding distinguished names,
// such as group members. Elements are plain strings in the schema.
type DNSetType struct {
	basetypes.SetType
}

func NewDNSetType() DNSetType {
	return DNSetType{SetType: basetypes.SetType{ElemType: basetypes.StringType{}}}
}

func (t DNSetType) String() string {
	return "types.DNSetType"
}

func (t DNSetType) ValueType(context.Context) attr.Value {
	return DNSetValue{SetValue: basetypes.NewSetNull(basetypes.StringType{})}
}

func (t DNSetType) Equal(o attr.Type) bool {
	other, ok := o.(DNSetType)
	return ok && t.SetType.Equal(other.SetType)
}

func (t DNSetType) ValueFromSet(_ context.Context, in basetypes.SetValue) (basetypes.SetValuable, diag.Diagnostics) {
	return DNSetValue{SetValue: in}, nil
}

func (t DNSetType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	v, err := t.SetType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	s, ok := v.(basetypes.SetValue)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for %s", v, t)
	}
	return DNSetValue{SetValue: s}, nil
}

// DNSetValue holds a set of distinguished names.
type DNSetValue struct {
	basetypes.SetValue
}

// NewDNSetValue builds a known set from dns. A nil slice gives an empty
// set, not a null one.
func NewDNSetValue(ctx context.Context, dns []string) (DNSetValue, diag.Diagnostics) {
	if dns == nil {
		dns = []string{}
	}
	s, diags := basetypes.NewSetValueFrom(ctx, basetypes.StringType{}, dns)
	if diags.HasError() {
		return NewDNSetUnknown(), diags
	}
	return DNSetValue{SetValue: s}, diags
}

func NewDNSetNull() DNSetValue {
	return DNSetValue{SetValue: basetypes.NewSetNull(basetypes.StringType{})}
}

func NewDNSetUnknown() DNSetValue {
	return DNSetValue{SetValue: basetypes.NewSetUnknown(basetypes.StringType{})}
}

func (v DNSetValue) Type(context.Context) attr.Type {
	return NewDNSetType()
}

func (v DNSetValue) Equal(o attr.Value) bool {
	other, ok := o.(DNSetValue)
	return ok && v.SetValue.Equal(other.SetValue)
}

// SetSemanticEquals reports whether both sets name the same entries.
func (v DNSetValue) SetSemanticEquals(ctx context.Context, newValuable basetypes.SetValuable) (bool, diag.Diagnostics) {
	other, ok := newValuable.(DNSetValue)
	if !ok {
		return false, semanticEqualityError("types.DNSetValue", newValuable)
	}

	if v.IsNull() || v.IsUnknown() || other.IsNull() || other.IsUnknown() {
		return v.Equal(other), nil
	}

	var diags diag.Diagnostics
	var current, proposed []string
	diags.Append(v.ElementsAs(ctx, &current, false)...)
	diags.Append(other.ElementsAs(ctx, &proposed, false)...)
	if diags.HasError() {
		return false, diags
	}

	return sameDNSet(current, proposed), diags
}
