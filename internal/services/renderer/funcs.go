package renderer

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// templateFuncs are the helpers available to every component template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"toJSON":  toJSON,
		"join":    join,
		"quote":   quote,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"default": defaultValue,
	}
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value to JSON: %w", err)
	}
	return string(b), nil
}

// join is pipeline friendly: {{ .environments | join ", " }}
func join(sep string, items any) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("join: unsupported type %T", items)
	}
}

// quote renders v as an HCL string literal. Control characters become
// \u escapes and template sequences are escaped so they stay literal.
func quote(v any) string {
	return string(hclwrite.TokensForValue(cty.StringVal(fmt.Sprint(v))).Bytes())
}

// defaultValue returns def when value is nil or the zero value of its type.
func defaultValue(def, value any) any {
	if value == nil {
		return def
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		if rv.Len() == 0 {
			return def
		}
	case reflect.Bool:
		if !rv.Bool() {
			return def
		}
	}
	return value
}
