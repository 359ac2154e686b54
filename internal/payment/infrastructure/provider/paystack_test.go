package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

func TestPaystackInitialize(t *testing.T) {
	var gotBody paystackInitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test_xyz", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         gotBody.Reference,
			},
		})
	}))
	defer server.Close()

	p := NewPaystackProvider("sk_test_xyz", server.URL, 5*time.Second)
	init, err := p.Initialize(context.Background(), testPayment())
	require.NoError(t, err)

	// 金额以科博提交
	assert.Equal(t, int64(1977500), gotBody.Amount)
	assert.Equal(t, "PAY-1001", gotBody.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", init.AuthorizeURL)
	assert.Equal(t, "PAY-1001", init.ProviderRef)
}

func TestPaystackVerify(t *testing.T) {
	cases := []struct {
		gateway string
		want    domain.ResultState
	}{
		{"success", domain.ResultSuccess},
		{"failed", domain.ResultFailed},
		{"abandoned", domain.ResultFailed},
		{"ongoing", domain.ResultPending},
	}

	for _, tc := range cases {
		t.Run(tc.gateway, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/transaction/verify/PAY-1001", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":  true,
					"message": "Verification successful",
					"data": map[string]any{
						"status":           tc.gateway,
						"reference":        "PAY-1001",
						"gateway_response": "Approved",
					},
				})
			}))
			defer server.Close()

			p := NewPaystackProvider("sk_test_xyz", server.URL, 5*time.Second)
			result, err := p.Verify(context.Background(), testPayment())
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.State)
		})
	}
}

func TestPaystackAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer server.Close()

	p := NewPaystackProvider("sk_bad", server.URL, 5*time.Second)
	_, err := p.Initialize(context.Background(), testPayment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
}

func TestFlutterwaveInitialize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments", r.URL.Path)
		require.Equal(t, "Bearer flw_test_xyz", r.Header.Get("Authorization"))

		var body flutterwaveInitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAY-1001", body.TxRef)
		assert.Equal(t, "19775.00", body.Amount)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "Hosted Link",
			"data":    map[string]any{"link": "https://checkout.flutterwave.com/v3/hosted/pay/xyz"},
		})
	}))
	defer server.Close()

	p := NewFlutterwaveProvider("flw_test_xyz", server.URL, 5*time.Second)
	init, err := p.Initialize(context.Background(), testPayment())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/xyz", init.AuthorizeURL)
}

func TestFlutterwaveVerify(t *testing.T) {
	cases := []struct {
		status string
		want   domain.ResultState
	}{
		{"successful", domain.ResultSuccess},
		{"failed", domain.ResultFailed},
		{"pending", domain.ResultPending},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
				require.Equal(t, "PAY-1001", r.URL.Query().Get("tx_ref"))
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":  "success",
					"message": "Transaction fetched",
					"data": map[string]any{
						"status":  tc.status,
						"tx_ref":  "PAY-1001",
						"flw_ref": "FLW-REF-1",
					},
				})
			}))
			defer server.Close()

			p := NewFlutterwaveProvider("flw_test_xyz", server.URL, 5*time.Second)
			result, err := p.Verify(context.Background(), testPayment())
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.State)
			if tc.want == domain.ResultSuccess {
				assert.Equal(t, "FLW-REF-1", result.ProviderRef)
			}
		})
	}
}
