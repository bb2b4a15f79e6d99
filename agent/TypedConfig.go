package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TypedConfig implements functionality for typing a Config. In this
// way, a Config can explicitly have its type stored so that when
// deserializing the Config, we can deserialize it into its concrete
// type without knowing beforehand or declaring beforehand a variable
// of its concrete type.
type TypedConfig struct {
	Type
	Config
}

// NewTypedConfig types the argument Config and returns it as a
// TypedConfig which explicitly holds its Type.
func NewTypedConfig(c Config) TypedConfig {
	return TypedConfig{Type: c.Type(), Config: c}
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (j *TypedConfig) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data, "Type", "Config")
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}

	j.Type = typeName
	j.Config = config

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField,
	valueJsonField string) (Config, Type, error) {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	var typeName Type
	if err := json.Unmarshal(m[typeJsonField], &typeName); err != nil {
		return nil, "", fmt.Errorf("invalid %v field: %v", typeJsonField, err)
	}

	r, found := registeredTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownType, typeName)
	}

	value := reflect.New(r.config)
	if err := json.Unmarshal(m[valueJsonField], value.Interface()); err != nil {
		return nil, "", err
	}

	return value.Elem().Interface().(Config), typeName, nil
}
