package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// QueryEncoder serializes query parameters into a percent-encoded query string
// without the leading '?'. An empty result means there is nothing to append.
type QueryEncoder func(params any) (string, error)

// ErrUnsupportedQueryParams indicates that query parameters have a type EncodeQuery cannot serialize.
var ErrUnsupportedQueryParams = errors.New("unsupported query parameters type")

// EncodeQuery is the default QueryEncoder.
//
// It accepts url.Values, map[string][]string, map[string]string, map[string]any
// and structs (or pointers to structs) tagged for github.com/google/go-querystring.
// In maps, nil values and nil pointers are dropped, slices and arrays become
// repeated keys (a=1&a=2). Keys are sorted and spaces are encoded as %20.
func EncodeQuery(params any) (string, error) {
	values, err := queryValues(params)
	if err != nil {
		return "", err
	}

	// url.Values.Encode escapes a literal '+' as %2B, so every remaining '+' is a space.
	return strings.ReplaceAll(values.Encode(), "+", "%20"), nil
}

func queryValues(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	case map[string][]string:
		return url.Values(p), nil
	case map[string]string:
		values := make(url.Values, len(p))
		for key, value := range p {
			values.Set(key, value)
		}

		return values, nil
	case map[string]any:
		values := make(url.Values, len(p))
		for key, value := range p {
			for _, s := range scalarStrings(value) {
				values.Add(key, s)
			}
		}

		return values, nil
	}

	v := reflect.ValueOf(params)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}

		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQueryParams, params)
	}

	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query parameters: %w", err)
	}

	return values, nil
}

// scalarStrings renders a map value as zero or more query values.
func scalarStrings(raw any) []string {
	if raw == nil {
		return nil
	}

	v := reflect.ValueOf(raw)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return []string{string(v.Bytes())}
		}

		result := make([]string, 0, v.Len())
		for i := range v.Len() {
			result = append(result, scalarStrings(v.Index(i).Interface())...)
		}

		return result
	case reflect.String:
		return []string{v.String()}
	case reflect.Bool:
		return []string{strconv.FormatBool(v.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []string{strconv.FormatInt(v.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []string{strconv.FormatUint(v.Uint(), 10)}
	case reflect.Float32:
		return []string{strconv.FormatFloat(v.Float(), 'f', -1, 32)}
	case reflect.Float64:
		return []string{strconv.FormatFloat(v.Float(), 'f', -1, 64)}
	default:
		return []string{fmt.Sprint(v.Interface())}
	}
}
