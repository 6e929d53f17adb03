package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{"meta":{"event_name":"order_created"},"data":{"attributes":{"user_email":"a@b.com","identifier":"ORD-1","order_number":42}}}`

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(sampleBody))
	require.NoError(t, err)

	assert.Equal(t, EventOrderCreated, ev.Meta.EventName)
	assert.Equal(t, "a@b.com", ev.Data.Attributes.UserEmail)
	assert.Equal(t, "ORD-1", ev.Data.Attributes.Identifier)
	assert.Equal(t, int64(42), ev.Data.Attributes.OrderNumber)
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte("not json at all"))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	const secret = "webhook-secret"
	body := []byte(sampleBody)

	testCases := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{
			name:      "matching signature",
			secret:    secret,
			body:      body,
			signature: Sign(secret, body),
			want:      true,
		},
		{
			name:      "signature over different body",
			secret:    secret,
			body:      body,
			signature: Sign(secret, []byte(`{"meta":{"event_name":"order_created"}}`)),
			want:      false,
		},
		{
			name:      "signature under different secret",
			secret:    secret,
			body:      body,
			signature: Sign("other-secret", body),
			want:      false,
		},
		{
			name:      "empty signature",
			secret:    secret,
			body:      body,
			signature: "",
			want:      false,
		},
		{
			name:      "empty secret never passes",
			secret:    "",
			body:      body,
			signature: Sign("", body),
			want:      false,
		},
		{
			name:      "garbage signature",
			secret:    secret,
			body:      body,
			signature: "deadbeef",
			want:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifySignature(tc.secret, tc.body, tc.signature))
		})
	}
}

func TestSignatureCoversExactBodyBytes(t *testing.T) {
	const secret = "webhook-secret"
	body := []byte(sampleBody)
	sig := Sign(secret, body)

	// Any re-serialization of the payload, however semantically
	// equivalent, must break the signature.
	reencoded := []byte(`{"meta": {"event_name": "order_created"}, "data": {"attributes": {"user_email": "a@b.com", "identifier": "ORD-1", "order_number": 42}}}`)
	assert.False(t, VerifySignature(secret, reencoded, sig))
}
