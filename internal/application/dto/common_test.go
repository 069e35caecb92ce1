package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
)

func TestDefaultPage(t *testing.T) {
	cases := []struct {
		name string
		in   dto.PageRequest
		want dto.PageRequest
	}{
		{"vacía", dto.PageRequest{}, dto.PageRequest{Limit: dto.DefaultPageLimit}},
		{"negativos", dto.PageRequest{Limit: -1, Offset: -5}, dto.PageRequest{Limit: dto.DefaultPageLimit}},
		{"dentro del tope", dto.PageRequest{Limit: 50, Offset: 10}, dto.PageRequest{Limit: 50, Offset: 10}},
		{"sobre el tope", dto.PageRequest{Limit: 500, Offset: 3}, dto.PageRequest{Limit: dto.MaxPageLimit, Offset: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.DefaultPage()
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	u := dto.Unauthorized(dto.ReasonInvalidToken, "token expirado")
	assert.False(t, u.Success)
	assert.Equal(t, dto.CodeUnauthorized, u.ErrorCode)
	assert.Equal(t, dto.ReasonInvalidToken, u.Code)

	f := dto.Forbidden("sin scope")
	assert.Equal(t, dto.CodeForbidden, f.ErrorCode)
	assert.Equal(t, dto.ReasonForbidden, f.Code)
}
