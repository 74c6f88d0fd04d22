// Package bridge implements the handoff between the standalone OAuth bridge
// and the main application: the bridge finishes a provider's code exchange
// and redirects to <main-app>/api/auth/<provider>-callback?token=<payload>.
package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sumire/storefront/internal/domain"
)

// Payload is the user record handed from the bridge to the main application,
// serialized as base64-encoded JSON.
type Payload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Image    string `json:"image"`
	Provider string `json:"provider"`
}

// PayloadFromIdentity builds the handoff payload for an exchanged identity.
func PayloadFromIdentity(identity domain.ExternalIdentity) Payload {
	return Payload{
		ID:       identity.ProviderSubjectID,
		Name:     identity.DisplayName,
		Email:    identity.Email,
		Image:    identity.AvatarURL,
		Provider: string(identity.Provider),
	}
}

// Encode returns the standard base64 encoding of the payload's JSON.
func (p Payload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal bridge payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Identity converts the payload into an external identity for provider.
// The provider is taken from the callback route, not from the payload.
func (p Payload) Identity(provider domain.AuthProvider) domain.ExternalIdentity {
	return domain.ExternalIdentity{
		Provider:          provider,
		ProviderSubjectID: p.ID,
		DisplayName:       p.Name,
		Email:             p.Email,
		AvatarURL:         p.Image,
	}
}

var payloadEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodePayload parses a handoff token. Unencoded "+" characters that a
// query string turned into spaces are restored first. The id may be a JSON
// string or number. Any failure, including a missing id or email, wraps
// domain.ErrInvalidCallbackPayload.
func DecodePayload(raw string) (Payload, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "+")
	if raw == "" {
		return Payload{}, domain.ErrMissingCallbackToken
	}

	var data []byte
	for _, enc := range payloadEncodings {
		decoded, err := enc.DecodeString(raw)
		if err == nil {
			data = decoded
			break
		}
	}
	if data == nil {
		return Payload{}, fmt.Errorf("%w: token is not base64", domain.ErrInvalidCallbackPayload)
	}

	if !gjson.ValidBytes(data) {
		return Payload{}, fmt.Errorf("%w: token is not JSON", domain.ErrInvalidCallbackPayload)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Payload{}, fmt.Errorf("%w: token is not a JSON object", domain.ErrInvalidCallbackPayload)
	}

	p := Payload{
		ID:       payloadID(doc.Get("id")),
		Name:     doc.Get("name").String(),
		Email:    doc.Get("email").String(),
		Image:    doc.Get("image").String(),
		Provider: doc.Get("provider").String(),
	}
	if p.ID == "" || p.Email == "" {
		return Payload{}, fmt.Errorf("%w: id and email are required", domain.ErrInvalidCallbackPayload)
	}
	return p, nil
}

// payloadID reads a string or numeric id. Zero counts as missing.
func payloadID(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if r.Num == 0 {
			return ""
		}
		return r.Raw
	default:
		return ""
	}
}
