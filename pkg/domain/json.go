package domain

import (
	"encoding/json"
	"fmt"
)

func marshalQuoted(s string) ([]byte, error) {
	return json.Marshal(s)
}

func unmarshalQuoted(b []byte) (string, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}

func errInvalidEnum(typeName, value string) error {
	return fmt.Errorf("domain: invalid %s value %q", typeName, value)
}
