package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &NodeError{NodeID: "n1", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "n1")
}

func TestPanicError_Message(t *testing.T) {
	err := &PanicError{NodeID: "n1", Value: "bad index"}

	assert.Contains(t, err.Error(), "n1")
	assert.Contains(t, err.Error(), "bad index")
}

func TestRouterError_Unwrap(t *testing.T) {
	err := &RouterError{FromNode: "decide", Returned: "nowhere", Err: ErrRouterTargetNotFound}

	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
	assert.Contains(t, err.Error(), "decide")
	assert.Contains(t, err.Error(), "nowhere")
}

func TestMaxIterationsError_Unwrap(t *testing.T) {
	err := &MaxIterationsError{Max: 50, LastNodeID: "loop"}

	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Contains(t, err.Error(), "50")
}

func TestCancellationError_Unwrap(t *testing.T) {
	err := &CancellationError{NodeID: "n1", Cause: errors.New("context canceled")}

	assert.Contains(t, err.Error(), "n1")
	assert.NotNil(t, errors.Unwrap(err))
}
