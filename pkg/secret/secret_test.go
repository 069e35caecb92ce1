package secret_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/firmador-dte/pkg/secret"
)

func TestNew_CopiaElBuffer(t *testing.T) {
	src := []byte("clave-super-secreta")
	s := secret.New(src)
	src[0] = 'X'

	assert.Equal(t, "clave-super-secreta", string(s.Bytes()), "el secreto no debe compartir memoria con el caller")
	assert.Equal(t, len(src), s.Len())
}

func TestDestroy_PoneACero(t *testing.T) {
	s := secret.FromString("password123")
	buf := s.Bytes()

	s.Destroy()

	assert.True(t, s.IsEmpty())
	for i, b := range buf {
		require.Zerof(t, b, "byte %d no fue borrado", i)
	}
	s.Destroy() // idempotente
}

func TestNil_EsSeguro(t *testing.T) {
	var s *secret.Secret
	assert.True(t, s.IsEmpty())
	assert.Nil(t, s.Bytes())
	assert.NotPanics(t, s.Destroy)
}

func TestEqual(t *testing.T) {
	s := secret.FromString("abc")
	assert.True(t, s.Equal([]byte("abc")))
	assert.False(t, s.Equal([]byte("abd")))
}

func TestNoSeFiltraEnFormatoNiJSON(t *testing.T) {
	s := secret.FromString("no-me-imprimas")

	assert.NotContains(t, fmt.Sprintf("%v %s %#v", s, s, s), "no-me-imprimas")

	out, err := json.Marshal(struct {
		P *secret.Secret `json:"p"`
	}{P: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "no-me-imprimas")
}
