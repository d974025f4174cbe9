package tools

import (
	"errors"
	"fmt"
	"reflect"

	"topovibe/pkg/geometry"

	"github.com/mitchellh/mapstructure"
)

// textError is reported to the model verbatim as the tool result.
type textError string

func (e textError) Error() string { return string(e) }

// decodeArgs copies the model supplied arguments into out. Numbers given as
// strings ("2") are accepted, but coordinates must be lists. Keys listed in
// required must be present.
func decodeArgs(tool string, args map[string]any, required []string, out any) error {
	for _, key := range required {
		if v, ok := args[key]; !ok || v == nil {
			return invalidArgs(tool, fmt.Errorf("%w '%s'", ErrMissingArgument, key))
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(coordinatesOnly),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return invalidArgs(tool, err)
	}
	return nil
}

// coordinatesOnly keeps weak typing from lifting a scalar into a one element
// slice, which would turn position: 5 into (5, 0, 0).
func coordinatesOnly(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Slice, reflect.Array:
		return data, nil
	}
	return nil, fmt.Errorf("expected a list, got %v", data)
}

func invalidArgs(tool string, err error) error {
	return textError(fmt.Sprintf("Error: invalid arguments for %s: %v", tool, err))
}

// errorText renders a tool failure as the text the model receives.
func errorText(err error) string {
	var te textError
	if errors.As(err, &te) {
		return string(te)
	}
	return "Error: " + err.Error()
}

// vertexFromCoordinates pads missing components with zero, so [1, 2]
// becomes (1, 2, 0).
func vertexFromCoordinates(c []float64) (*geometry.Vertex, error) {
	if len(c) > 3 {
		return nil, fmt.Errorf("coordinates %v have more than 3 components", c)
	}
	var xyz [3]float64
	copy(xyz[:], c)
	return geometry.VertexByCoordinates(xyz[0], xyz[1], xyz[2]), nil
}

func verticesFromPoints(points [][]float64) ([]*geometry.Vertex, error) {
	vs := make([]*geometry.Vertex, 0, len(points))
	for _, p := range points {
		v, err := vertexFromCoordinates(p)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// optionalOrigin returns nil when no origin was given, letting the shape
// constructors center on the world origin.
func optionalOrigin(c []float64) (*geometry.Vertex, error) {
	if c == nil {
		return nil, nil
	}
	return vertexFromCoordinates(c)
}
