package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"github.com/carvdstudio/carvd-licensing/internal/service"
	"github.com/carvdstudio/carvd-licensing/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "test-webhook-secret"

const orderCreatedBody = `{"meta":{"event_name":"order_created"},"data":{"attributes":{"user_email":"a@b.com","identifier":"ORD-1","order_number":42}}}`

type fakeDeliveryTracker struct {
	seen map[string]int
}

func newFakeDeliveryTracker() *fakeDeliveryTracker {
	return &fakeDeliveryTracker{seen: make(map[string]int)}
}

func (f *fakeDeliveryTracker) MarkSeen(_ context.Context, orderID string) bool {
	f.seen[orderID]++
	return f.seen[orderID] == 1
}

func newTestSigner(t *testing.T) (*licensekey.Signer, *licensekey.Verifier) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	signer, err := licensekey.NewSignerFromPEM(privPEM)
	require.NoError(t, err)

	return signer, licensekey.NewVerifier(&key.PublicKey)
}

func newWebhookRouter(signer *licensekey.Signer, tracker service.DeliveryTracker) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	issuerService := service.NewIssuerService(signer, testWebhookSecret, nil, tracker, logger)
	webhookHandler := NewWebhookHandler(issuerService, logger)

	router := gin.New()
	router.POST("/webhook", webhookHandler.Handle)
	return router
}

func postWebhook(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookIssuesLicenseForOrderCreated(t *testing.T) {
	signer, verifier := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	rec := postWebhook(router, orderCreatedBody, webhook.Sign(testWebhookSecret, []byte(orderCreatedBody)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success    bool   `json:"success"`
		LicenseKey string `json:"license_key"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "License key issued", resp.Message)
	require.NotEmpty(t, resp.LicenseKey)

	result := verifier.Verify(resp.LicenseKey)
	require.True(t, result.Valid)
	assert.Equal(t, "a@b.com", result.Claims.Email)
	assert.Equal(t, "ORD-1", result.Claims.OrderID)
	assert.Equal(t, "carvd-studio", result.Claims.Product)
	assert.Equal(t, "standard", result.Claims.LicenseType)
	assert.True(t, result.Claims.IsPerpetual())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	signer, _ := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	rec := postWebhook(router, orderCreatedBody, webhook.Sign("wrong-secret", []byte(orderCreatedBody)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "license_key")
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	signer, _ := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	rec := postWebhook(router, orderCreatedBody, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	signer, _ := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	body := `{"meta":{"event_name":"subscription_payment_success"},"data":{"attributes":{"user_email":"a@b.com","identifier":"ORD-1"}}}`
	rec := postWebhook(router, body, webhook.Sign(testWebhookSecret, []byte(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Event ignored", resp["message"])
	assert.NotContains(t, resp, "license_key")
	assert.NotContains(t, resp, "success")
}

func TestWebhookRejectsUnparseableBody(t *testing.T) {
	signer, _ := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	body := `{"meta": truncated`
	rec := postWebhook(router, body, webhook.Sign(testWebhookSecret, []byte(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsOrderWithoutPurchaseAttributes(t *testing.T) {
	signer, _ := newTestSigner(t)
	router := newWebhookRouter(signer, newFakeDeliveryTracker())

	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing email",
			body: `{"meta":{"event_name":"order_created"},"data":{"attributes":{"identifier":"ORD-1"}}}`,
		},
		{
			name: "missing identifier",
			body: `{"meta":{"event_name":"order_created"},"data":{"attributes":{"user_email":"a@b.com"}}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postWebhook(router, tc.body, webhook.Sign(testWebhookSecret, []byte(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWebhookReportsServerErrorWithoutSigningKey(t *testing.T) {
	router := newWebhookRouter(nil, newFakeDeliveryTracker())

	rec := postWebhook(router, orderCreatedBody, webhook.Sign(testWebhookSecret, []byte(orderCreatedBody)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookRedeliveryMintsFreshKey(t *testing.T) {
	signer, verifier := newTestSigner(t)
	tracker := newFakeDeliveryTracker()
	router := newWebhookRouter(signer, tracker)

	sig := webhook.Sign(testWebhookSecret, []byte(orderCreatedBody))

	first := postWebhook(router, orderCreatedBody, sig)
	second := postWebhook(router, orderCreatedBody, sig)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, tracker.seen["ORD-1"])

	for _, rec := range []*httptest.ResponseRecorder{first, second} {
		var resp struct {
			LicenseKey string `json:"license_key"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, verifier.Verify(resp.LicenseKey).Valid)
	}
}
