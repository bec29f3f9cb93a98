package shopify

import (
	"errors"
	"testing"
)

func TestWebhookSignatureRoundTrip(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":820982911946154508,"total_price":"189.00"}`)

	signature := SignWebhook(secret, body)
	if signature == "" {
		t.Fatalf("signature should not be empty")
	}
	if !VerifyWebhookSignature(secret, body, signature) {
		t.Fatalf("valid signature should verify")
	}
}

func TestWebhookSignatureRejections(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":1}`)
	signature := SignWebhook(secret, body)

	if VerifyWebhookSignature(secret, []byte(`{"id":2}`), signature) {
		t.Fatalf("tampered body should fail verification")
	}
	if VerifyWebhookSignature("other_secret", body, signature) {
		t.Fatalf("wrong secret should fail verification")
	}
	if VerifyWebhookSignature(secret, body, "not-base64!!!") {
		t.Fatalf("malformed signature should fail verification")
	}
	if VerifyWebhookSignature(secret, body, "") {
		t.Fatalf("empty signature should fail verification")
	}
	if VerifyWebhookSignature("", body, signature) {
		t.Fatalf("empty secret must never verify")
	}
}

func TestParseOrderEvent(t *testing.T) {
	body := []byte(`{
		"id": 820982911946154508,
		"order_number": 1234,
		"total_price": "189.00",
		"currency": "USD",
		"financial_status": "paid",
		"customer": {"id": 115310627314723954, "email": "John@Example.com"}
	}`)

	event, err := ParseOrderEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.ID != 820982911946154508 {
		t.Fatalf("unexpected order id: %d", event.ID)
	}
	if event.OrderNo() != "1234" {
		t.Fatalf("order no want 1234, got %s", event.OrderNo())
	}
	if event.Total().StringFixed(2) != "189.00" {
		t.Fatalf("total want 189.00, got %s", event.Total().StringFixed(2))
	}
	if event.CustomerID() != 115310627314723954 {
		t.Fatalf("unexpected customer id: %d", event.CustomerID())
	}
	if event.CustomerEmail() != "john@example.com" {
		t.Fatalf("customer email should be lowercased, got %s", event.CustomerEmail())
	}
}

func TestParseOrderEventInvalid(t *testing.T) {
	if _, err := ParseOrderEvent([]byte(`not json`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("malformed json want ErrResponseInvalid, got %v", err)
	}
	if _, err := ParseOrderEvent([]byte(`{"total_price":"10.00"}`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("missing id want ErrResponseInvalid, got %v", err)
	}
}

func TestOrderEventFallbacks(t *testing.T) {
	event := &OrderEvent{ID: 42, TotalPrice: "garbage"}
	if event.OrderNo() != "42" {
		t.Fatalf("order no should fall back to id, got %s", event.OrderNo())
	}
	if !event.Total().IsZero() {
		t.Fatalf("unparseable total should be zero, got %s", event.Total().String())
	}
	if event.CustomerID() != 0 || event.CustomerEmail() != "" {
		t.Fatalf("missing customer should yield zero values")
	}
}
