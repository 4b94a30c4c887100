// package query renders GET parameters.
//
// Slice values expand to one key=value pair per element with the key
// repeated ("b=2&b=3"), never indexed brackets. Some servers expect
// "b[]=2" or "b[0]=2" instead; callers talking to those should pass a
// pre-rendered string.
package query

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Encode renders params as a query string without a leading separator.
// Supported inputs: string, url.Values, map[string]string,
// map[string][]string and map[string]interface{} with scalar or slice values.
// Map keys are emitted in sorted order and are not escaped.
func Encode(params interface{}) (string, error) {
	switch p := params.(type) {
	case nil:
		return "", nil
	case string:
		return trim(p), nil
	case []byte:
		return trim(string(p)), nil
	case url.Values:
		return encodeMulti(p), nil
	case map[string][]string:
		return encodeMulti(p), nil
	case map[string]string:
		var sb strings.Builder
		for _, k := range sortedKeys(p) {
			pair(&sb, k, p[k])
		}
		return sb.String(), nil
	case map[string]interface{}:
		var sb strings.Builder
		for _, k := range sortedKeys(p) {
			if err := encodeAny(&sb, k, p[k]); err != nil {
				return "", err
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("query: unsupported parameter type %T", params)
	}
}

// Append joins rendered onto rawURL with "?" when rawURL has no query yet
// and "&" otherwise. Surrounding "?" and "&" are trimmed from rawURL first.
func Append(rawURL, rendered string) string {
	rawURL = trim(rawURL)
	if rendered == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + rendered
	}
	return rawURL + "?" + rendered
}

// trim strips "?" then "&" from both ends.
func trim(s string) string {
	return strings.Trim(strings.Trim(s, "?"), "&")
}

func encodeMulti(m map[string][]string) string {
	var sb strings.Builder
	for _, k := range sortedKeys(m) {
		for _, v := range m[k] {
			pair(&sb, k, v)
		}
	}
	return sb.String()
}

func encodeAny(sb *strings.Builder, k string, v interface{}) error {
	switch v := v.(type) {
	case nil:
		pair(sb, k, "")
	case map[string]interface{}, map[string]string:
		// nested mappings have no repeated-key form
	default:
		if elems, ok := Elements(v); ok {
			for _, e := range elems {
				s, ok := Scalar(e)
				if !ok {
					return fmt.Errorf("query: unsupported element type %T for %q", e, k)
				}
				pair(sb, k, s)
			}
			return nil
		}
		s, ok := Scalar(v)
		if !ok {
			return fmt.Errorf("query: unsupported value type %T for %q", v, k)
		}
		pair(sb, k, s)
	}
	return nil
}

func pair(sb *strings.Builder, k, v string) {
	if sb.Len() > 0 {
		sb.WriteByte('&')
	}
	sb.WriteString(k)
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(v))
}

// Elements returns the elements of any slice or array except a byte slice,
// which is a scalar.
func Elements(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	elems := make([]interface{}, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

// Scalar formats the value kinds a form or query accepts as a single field.
// Booleans render as "1" and "".
func Scalar(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case bool:
		if v {
			return "1", true
		}
		return "", true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
