package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/serialization"
)

func TestExecutionContext_KeepsScalarsOnly(t *testing.T) {
	data, err := serialization.MarshalExecutionContext(map[string]interface{}{
		"foottraffic.inserted": 48,
		"migration.dir":        "sqlite",
		"flag":                 true,
		"foottraffic.raw_rows": []string{"a", "b"},
	})
	require.NoError(t, err)

	ec, err := serialization.UnmarshalExecutionContext(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"foottraffic.inserted": 48.0,
		"migration.dir":        "sqlite",
		"flag":                 true,
	}, ec)
}

func TestExecutionContext_EmptyData(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("null")} {
		ec, err := serialization.UnmarshalExecutionContext(data)
		require.NoError(t, err)
		assert.Empty(t, ec)
		assert.NotNil(t, ec)
	}
}

func TestUnmarshalJobParameters(t *testing.T) {
	params, err := serialization.UnmarshalJobParameters([]byte(`{"backfill_days":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3.0, params["backfill_days"])

	_, err = serialization.UnmarshalJobParameters([]byte(`{"backfill_days":`))
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

func TestFailures(t *testing.T) {
	data, err := serialization.MarshalFailures(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = serialization.MarshalFailures([]string{"[store] failed to load series: boom"})
	require.NoError(t, err)
	msgs, err := serialization.UnmarshalFailures(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"[store] failed to load series: boom"}, msgs)

	msgs, err = serialization.UnmarshalFailures(nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
