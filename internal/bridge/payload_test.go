package bridge

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storefront/internal/domain"
)

func TestPayload_EncodeDecode(t *testing.T) {
	identity := domain.ExternalIdentity{
		Provider:          domain.AuthProviderSM40,
		ProviderSubjectID: "u1",
		DisplayName:       "Jane",
		Email:             "jane@x.com",
		AvatarURL:         "http://a",
	}

	token, err := PayloadFromIdentity(identity).Encode()
	require.NoError(t, err)

	decoded, err := DecodePayload(token)
	require.NoError(t, err)
	assert.Equal(t, "sm40", decoded.Provider)
	assert.Equal(t, identity, decoded.Identity(domain.AuthProviderSM40))
}

func TestDecodePayload_AcceptsBridgeWireFormat(t *testing.T) {
	// json_encode escapes slashes; base64_encode pads.
	raw := `{"id":"u1","name":"Jane","email":"jane@x.com","image":"http:\/\/a","provider":"sm40"}`
	token := base64.StdEncoding.EncodeToString([]byte(raw))

	p, err := DecodePayload(token)
	require.NoError(t, err)
	assert.Equal(t, "http://a", p.Image)
}

func TestDecodePayload_RestoresPlusSigns(t *testing.T) {
	// ">>>" encodes to "Pj4+" so the token contains a '+'.
	raw := `{"id":"u1","email":"jane@x.com","name":">>>"}`
	token := base64.StdEncoding.EncodeToString([]byte(raw))
	require.Contains(t, token, "+")

	p, err := DecodePayload(strings.ReplaceAll(token, "+", " "))
	require.NoError(t, err)
	assert.Equal(t, ">>>", p.Name)
}

func TestDecodePayload_Unpadded(t *testing.T) {
	token := base64.RawStdEncoding.EncodeToString([]byte(`{"id":"u1","email":"jane@x.com"}`))

	p, err := DecodePayload(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
}

func TestDecodePayload_NumericID(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"id":20231105,"name":"Jane","email":"jane@x.com","image":null}`))

	p, err := DecodePayload(token)
	require.NoError(t, err)
	assert.Equal(t, "20231105", p.ID)
	assert.Empty(t, p.Image)
}

func TestDecodePayload_Rejects(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", domain.ErrMissingCallbackToken},
		{"not base64", "%%%", domain.ErrInvalidCallbackPayload},
		{"not json", enc("hello"), domain.ErrInvalidCallbackPayload},
		{"missing email", enc(`{"id":"u1","name":"Jane"}`), domain.ErrInvalidCallbackPayload},
		{"missing id", enc(`{"email":"jane@x.com"}`), domain.ErrInvalidCallbackPayload},
		{"zero id", enc(`{"id":0,"email":"jane@x.com"}`), domain.ErrInvalidCallbackPayload},
		{"object id", enc(`{"id":{"v":1},"email":"jane@x.com"}`), domain.ErrInvalidCallbackPayload},
		{"array", enc(`[1,2]`), domain.ErrInvalidCallbackPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
