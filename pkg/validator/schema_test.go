package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationSchema(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    FieldErrors
	}{
		{
			name:    "valid",
			payload: map[string]any{"username": "alice", "email": "a@x.io", "password": "secret1"},
		},
		{
			name:    "empty body reports every required field",
			payload: map[string]any{},
			want: FieldErrors{
				"username": {MsgRequired},
				"email":    {MsgRequired},
				"password": {MsgRequired},
			},
		},
		{
			name:    "short username and bad email together",
			payload: map[string]any{"username": "al", "email": "nope", "password": "secret1"},
			want: FieldErrors{
				"username": {MsgInvalidValue},
				"email":    {MsgInvalidEmail},
			},
		},
		{
			name:    "short password",
			payload: map[string]any{"username": "alice", "email": "a@x.io", "password": "12345"},
			want:    FieldErrors{"password": {MsgInvalidValue}},
		},
		{
			name:    "wrong type and null",
			payload: map[string]any{"username": 42.0, "email": nil, "password": "secret1"},
			want: FieldErrors{
				"username": {MsgNotString},
				"email":    {MsgNull},
			},
		},
		{
			name:    "unknown field",
			payload: map[string]any{"username": "alice", "email": "a@x.io", "password": "secret1", "admin": true},
			want:    FieldErrors{"admin": {MsgUnknownField}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, errs := Registration.Validate(tt.payload)
			if tt.want == nil {
				require.Nil(t, errs)
				assert.Equal(t, "alice", values["username"])
				assert.Equal(t, "a@x.io", values["email"])
				assert.Equal(t, "secret1", values["password"])
				return
			}
			assert.Nil(t, values)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestLengthCountsCharacters(t *testing.T) {
	_, errs := Registration.Validate(map[string]any{"username": "日本語", "email": "a@x.io", "password": "secret1"})
	assert.Nil(t, errs)
}

func TestProfileUpdateSchema(t *testing.T) {
	values, errs := ProfileUpdate.Validate(map[string]any{})
	require.Nil(t, errs)
	assert.Empty(t, values)

	values, errs = ProfileUpdate.Validate(map[string]any{"bio": strings.Repeat("x", 500), "name": "Bob"})
	require.Nil(t, errs)
	assert.Nil(t, values.Ptr("email"))
	require.NotNil(t, values.Ptr("name"))
	assert.Equal(t, "Bob", *values.Ptr("name"))

	_, errs = ProfileUpdate.Validate(map[string]any{"bio": strings.Repeat("x", 501), "name": "Bo"})
	assert.Equal(t, FieldErrors{"bio": {MsgInvalidValue}, "name": {MsgInvalidValue}}, errs)
}

func TestDecode(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, map[string]any{"username": "alice"}, Decode(req))
	})

	t.Run("form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=alice&password=x&password=y"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.Equal(t, map[string]any{"username": "alice", "password": "x"}, Decode(req))
	})

	t.Run("undeclared content type still parses json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
		assert.Equal(t, map[string]any{"username": "alice"}, Decode(req))
	})

	t.Run("malformed json is empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
		req.Header.Set("Content-Type", "application/json")
		assert.Empty(t, Decode(req))
	})

	t.Run("non-object json is empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`["alice"]`))
		req.Header.Set("Content-Type", "application/json")
		assert.Empty(t, Decode(req))
	})

	t.Run("no body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, Decode(req))
	})
}
