package maps

import "github.com/mitchellh/mapstructure"

// Map2Struct decodes an input map into the output structure using reflection.
// output must be a pointer to a map or struct. Used by advice components to
// decode their raw Configuration during Init.
func Map2Struct(input interface{}, output interface{}) error {
	return mapstructure.Decode(input, output)
}
