// Package conv 提供 YAML/JSON 解析结果（map[string]any）到具体类型的转换，
// 主要给 Node 构建器读取配置用。
package conv

import (
	"fmt"
	"strconv"
	"strings"
)

// ToFloat64 将 any 转为 float64。
// 支持各类整数/浮点数与数字字符串；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToInt 将 any 转为 int，浮点数向零截断。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case uint64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	if f, ok := ToFloat64(v); ok {
		return int(f), true
	}
	return 0, false
}

// ToStrings 将 []any / []string / 逗号分隔的字符串转为 []string。
// 数字元素格式化为最短表示。
func ToStrings(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case string:
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			switch x := e.(type) {
			case string:
				out = append(out, x)
			default:
				if f, ok := ToFloat64(x); ok {
					out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
				}
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// ConfigGet 从 map[string]any 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetFloat64 取数值配置。YAML 里写 1 会解析成 int，这里统一为 float64。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if f, ok := ToFloat64(m[key]); ok {
		return f
	}
	return defaultVal
}

// ConfigGetInt 取整数配置。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	if n, ok := ToInt(m[key]); ok {
		return n
	}
	return defaultVal
}

// ConfigGetStrings 取字符串列表配置。
func ConfigGetStrings(m map[string]any, key string, defaultVal []string) []string {
	if s, ok := ToStrings(m[key]); ok {
		return s
	}
	return defaultVal
}

// ConfigGetMap 取嵌套配置。
func ConfigGetMap(m map[string]any, key string) map[string]any {
	switch v := m[key].(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[fmt.Sprint(k)] = x
		}
		return out
	}
	return nil
}

// Ptr 返回 v 的指针，用于区分“未配置”和零值。
func Ptr[T any](v T) *T { return &v }

// ConfigGetFloat64Ptr 取可选数值配置，key 不存在或无法转换时返回 nil。
func ConfigGetFloat64Ptr(m map[string]any, key string) *float64 {
	if f, ok := ToFloat64(m[key]); ok {
		return &f
	}
	return nil
}

// ConfigGetIntPtr 取可选整数配置，key 不存在或无法转换时返回 nil。
func ConfigGetIntPtr(m map[string]any, key string) *int {
	if n, ok := ToInt(m[key]); ok {
		return &n
	}
	return nil
}
