package journal

import (
	"strconv"
	"strings"

	"github.com/bromapp/flostore/pkg/flo"
	"github.com/valyala/fastjson"
)

// ParseEntryIDs normalizes an entry-id list input to a flat slice.
//
// Accepted shapes, all yielding the same normalized form:
//   - an integer (42)
//   - a digit string ("42")
//   - a comma-separated list ("42, 43,44")
//   - a JSON-encoded array of strings or numbers (`["42",43]`)
//
// Empty elements are dropped; an empty input yields an empty slice.
func ParseEntryIDs(input any) ([]string, error) {
	switch v := input.(type) {
	case int:
		return []string{strconv.Itoa(v)}, nil
	case int64:
		return []string{strconv.FormatInt(v, 10)}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case string:
		return parseEntryIDString(v)
	default:
		return nil, flo.NewError(flo.KindDecode, "unsupported entry id input")
	}
}

func parseEntryIDString(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return []string{}, nil
	}

	if strings.HasPrefix(input, "[") {
		return parseEntryIDArray(input)
	}

	ids := []string{}
	for _, id := range strings.Split(input, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseEntryIDArray(input string) ([]string, error) {
	value, err := fastjson.Parse(input)
	if err != nil {
		return nil, flo.WrapError(flo.KindDecode, err, "could not parse entry id array")
	}

	elements, err := value.Array()
	if err != nil {
		return nil, flo.WrapError(flo.KindDecode, err, "entry id input is not an array")
	}

	ids := []string{}
	for _, element := range elements {
		switch element.Type() {
		case fastjson.TypeString:
			if id := strings.TrimSpace(string(element.GetStringBytes())); id != "" {
				ids = append(ids, id)
			}
		case fastjson.TypeNumber:
			ids = append(ids, element.String())
		default:
			return nil, flo.NewError(flo.KindDecode, "entry id array may only hold strings and numbers")
		}
	}
	return ids, nil
}
