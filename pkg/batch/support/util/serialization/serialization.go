// Package serialization converts job metadata to and from the JSON stored by the SQL job repository.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

const module = "serialization"

// MarshalExecutionContext serializes the scalar entries of an ExecutionContext (strings, numbers
// and booleans). Other values hold in-flight step data and are left out.
func MarshalExecutionContext(ctx map[string]interface{}) ([]byte, error) {
	scalars := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		switch v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			scalars[k] = v
		}
	}
	data, err := json.Marshal(scalars)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to serialize ExecutionContext", err, false, false)
	}
	return data, nil
}

// UnmarshalExecutionContext deserializes data into a new map. Numbers come back as float64.
func UnmarshalExecutionContext(data []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, exception.NewBatchError(module, "failed to deserialize ExecutionContext", err, false, false)
	}
	return out, nil
}

// UnmarshalJobParameters deserializes a parameters document into a new map.
func UnmarshalJobParameters(data []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, exception.NewBatchError(module, "failed to deserialize JobParameters", err, false, false)
	}
	return out, nil
}

// MarshalFailures serializes failure messages. nil becomes an empty array.
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to serialize Failures", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures deserializes failure messages.
func UnmarshalFailures(data []byte) ([]string, error) {
	if len(data) == 0 || string(data) == "null" {
		return []string{}, nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewBatchError(module, "failed to deserialize Failures", err, false, false)
	}
	return msgs, nil
}
