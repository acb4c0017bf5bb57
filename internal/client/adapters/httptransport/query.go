package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// EncodeQuery переводит Payload читающего запроса в параметры строки запроса.
// Поддерживаются url.Values, map[string]string, map[string][]string, map[string]any
// и любые значения, сериализуемые в JSON объект. nil значения пропускаются,
// срезы дают повторяющиеся параметры.
func EncodeQuery(payload any) (url.Values, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	case map[string]string:
		values := make(url.Values, len(p))
		for k, v := range p {
			values.Set(k, v)
		}
		return values, nil
	case map[string][]string:
		return url.Values(p), nil
	case map[string]any:
		return encodeMap(p)
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		var obj map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("query payload must encode to a JSON object: %w", err)
		}
		return encodeMap(obj)
	}
}

func encodeMap(obj map[string]any) (url.Values, error) {
	values := make(url.Values, len(obj))

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := obj[k]
		if list, ok := v.([]any); ok {
			for _, item := range list {
				s, skip, err := formatQueryValue(item)
				if err != nil {
					return nil, err
				}
				if !skip {
					values.Add(k, s)
				}
			}
			continue
		}
		s, skip, err := formatQueryValue(v)
		if err != nil {
			return nil, err
		}
		if !skip {
			values.Set(k, s)
		}
	}
	return values, nil
}

func formatQueryValue(v any) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "", true, nil
	case string:
		return val, false, nil
	case bool:
		return strconv.FormatBool(val), false, nil
	case json.Number:
		return val.String(), false, nil
	case int:
		return strconv.Itoa(val), false, nil
	case int64:
		return strconv.FormatInt(val, 10), false, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), false, nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return "", false, err
		}
		return string(raw), false, nil
	}
}
