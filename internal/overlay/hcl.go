package overlay

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

// evalHCL evaluates every top-level attribute in source order. Each result
// becomes a variable for the attributes that follow it.
func evalHCL(src []byte, filename string, seed settings.Settings, env environ.Environment) (settings.Settings, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected HCL body type %T", file.Body)
	}
	if len(body.Blocks) > 0 {
		block := body.Blocks[0]
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unexpected block",
			Detail:   fmt.Sprintf("Settings files may only contain attributes; found a %q block.", block.Type),
			Subject:  block.TypeRange.Ptr(),
		}}
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	vars := make(map[string]cty.Value, len(seed)+len(attrs))
	for k, v := range seed {
		if !hclsyntax.ValidIdentifier(k) {
			continue
		}
		val, err := toCty(v)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", k, err)
		}
		vars[k] = val
	}

	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: functions(env),
	}

	out := make(settings.Settings, len(attrs))
	for _, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := fromCty(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		vars[attr.Name] = val
		out[attr.Name] = native
	}
	return out, nil
}

func functions(env environ.Environment) map[string]function.Function {
	return map[string]function.Function{
		"upper":    stdlib.UpperFunc,
		"lower":    stdlib.LowerFunc,
		"join":     stdlib.JoinFunc,
		"format":   stdlib.FormatFunc,
		"concat":   stdlib.ConcatFunc,
		"merge":    stdlib.MergeFunc,
		"coalesce": stdlib.CoalesceFunc,
		"env":      envFunc(env),
	}
}

// envFunc implements env(name, [default]).
func envFunc(env environ.Environment) function.Function {
	return function.New(&function.Spec{
		Description: "Returns the value of an environment variable, or the optional default.",
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if v, ok := env[args[0].AsString()]; ok {
				return cty.StringVal(v), nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return cty.StringVal(""), nil
		},
	})
}

// toCty converts a settings value into a cty.Value.
func toCty(v any) (cty.Value, error) {
	switch typed := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(typed), nil
	case bool:
		return cty.BoolVal(typed), nil
	case int:
		return cty.NumberIntVal(int64(typed)), nil
	case int64:
		return cty.NumberIntVal(typed), nil
	case float64:
		return cty.NumberFloatVal(typed), nil
	case settings.Settings:
		return objectToCty(typed)
	case map[string]any:
		return objectToCty(typed)
	case map[string]string:
		m := make(map[string]any, len(typed))
		for k, inner := range typed {
			m[k] = inner
		}
		return objectToCty(m)
	case []any:
		if len(typed) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(typed))
		for i, inner := range typed {
			val, err := toCty(inner)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = val
		}
		return cty.TupleVal(elems), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

func objectToCty(m map[string]any) (cty.Value, error) {
	if len(m) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, inner := range m {
		val, err := toCty(inner)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", k, err)
		}
		attrs[k] = val
	}
	return cty.ObjectVal(attrs), nil
}

// fromCty converts an evaluated value into its settings representation.
// Whole numbers that fit an int become int, other numbers float64.
func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is unknown")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact && n >= math.MinInt && n <= math.MaxInt {
				return int(n), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := fromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := fromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
