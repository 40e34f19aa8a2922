package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolInvokeResultIsError(t *testing.T) {
	success := &ToolInvokeResult{Status: InvokeStatusSuccess}
	assert.False(t, success.IsError())

	failure := &ToolInvokeResult{
		Status: InvokeStatusError,
		Error:  &ErrorDescriptor{Kind: ErrorKindInvalidInput, Message: "bad"},
	}
	assert.True(t, failure.IsError())
}

func TestToolInvokeResultOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(&ToolInvokeResult{
		Status: InvokeStatusSuccess,
		Tool:   "health_check",
	})
	require.NoError(t, err)

	// a successful envelope carries no error field, and vice versa
	assert.NotContains(t, string(data), `"error"`)
	assert.NotContains(t, string(data), `"payload"`)
}
