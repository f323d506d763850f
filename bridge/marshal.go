package bridge

import (
	"encoding/json"
	"errors"

	"github.com/dop251/goja"
)

// jsonCodec binds a runtime's own JSON.parse/JSON.stringify functions so
// that marshalling goes through the engine's built-in (de)serialiser
// rather than goja's generic ToValue/Export reflection path.
type jsonCodec struct {
	vm        *goja.Runtime
	parse     goja.Callable
	stringify goja.Callable
}

func newJSONCodec(vm *goja.Runtime) (*jsonCodec, error) {
	jsonObj := vm.GlobalObject().Get("JSON")
	if jsonObj == nil || goja.IsUndefined(jsonObj) {
		return nil, errors.New("runtime has no global JSON object")
	}
	obj := jsonObj.ToObject(vm)

	parse, ok := goja.AssertFunction(obj.Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not callable")
	}
	stringify, ok := goja.AssertFunction(obj.Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not callable")
	}
	return &jsonCodec{vm: vm, parse: parse, stringify: stringify}, nil
}

// parseText runs the engine's JSON.parse on text.
func (c *jsonCodec) parseText(text string) (goja.Value, error) {
	return c.parse(goja.Undefined(), c.vm.ToValue(text))
}

// stringifyValue runs the engine's JSON.stringify on v. A value that
// stringifies to undefined (functions, symbols) is a serialisation
// error at this boundary.
func (c *jsonCodec) stringifyValue(v goja.Value) (string, error) {
	res, err := c.stringify(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	if res == nil || goja.IsUndefined(res) {
		return "", errors.New("JSON.stringify produced no output")
	}
	return res.String(), nil
}

// jsonToEngineValue converts a Go JSON-shaped value (map[string]any,
// []any, string, float64, bool, nil, ...) to an engine value by
// marshalling it to JSON text and handing that text to the engine's own
// JSON parser.
func jsonToEngineValue(codec *jsonCodec, v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, WrapSerializationError(err)
	}
	val, err := codec.parseText(string(data))
	if err != nil {
		return nil, WrapSerializationError(err)
	}
	return val, nil
}

// engineValueToJSON converts an engine value to a Go JSON-shaped value.
// null or undefined becomes nil (JSON null); otherwise the engine's
// stringifier produces text that is parsed into a Go value. A
// stringifier returning nothing is a serialisation error.
func engineValueToJSON(codec *jsonCodec, val goja.Value) (any, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	text, err := codec.stringifyValue(val)
	if err != nil {
		return nil, WrapSerializationError(err)
	}
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, WrapSerializationError(err)
	}
	return out, nil
}

// argToMap coerces a decoded JSON value into map[string]any, the shape
// every tool call argument object is expected to take. A non-object
// value (including nil from a parse failure) becomes a nil map, which
// marshals to JSON `null`; callers that need the raw value should use
// engineValueToJSON directly.
func argToMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
