package result

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID string `json:"id"`
}

func TestOkEnvelope(t *testing.T) {
	r := Ok(&payload{ID: "n1"})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"","payload":{"id":"n1"}}`, string(data))
	assert.Equal(t, KindNone, r.Kind)
}

func TestFailEnvelopeHasNullPayload(t *testing.T) {
	r := NotFound[*payload]("node %q not found", "n1")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"node \"n1\" not found","payload":null}`, string(data))
	assert.True(t, r.Is(KindNotFound))
	assert.False(t, r.Is(KindValidation))
	assert.Nil(t, r.Payload)
}

func TestFailEnvelopeHidesNonPointerPayload(t *testing.T) {
	r := Validation[string]("bad")
	r.Payload = "leaked"

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"bad","payload":null}`, string(data))
}

func TestForward(t *testing.T) {
	src := Conflict[int]("dup %d", 7)
	dst := Forward[string](src)

	assert.False(t, dst.Success)
	assert.Equal(t, KindConflict, dst.Kind)
	assert.Equal(t, "dup 7", dst.Message)

	assert.Panics(t, func() { Forward[string](Ok(1)) })
}

func TestInfraError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Infra("find node", cause)

	var infra *InfraError
	require.ErrorAs(t, err, &infra)
	assert.Equal(t, "find node", infra.Op)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "find node: connection refused")

	assert.NoError(t, Infra("noop", nil))
}
