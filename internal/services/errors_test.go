package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    CodeNotFound,
		Message: "no measurements for entity m1",
	}

	if err.Error() != "no measurements for entity m1" {
		t.Errorf("Expected message, got '%s'", err.Error())
	}
}

func TestNewServiceError(t *testing.T) {
	err := NewServiceError(CodeSourceError, "redis unavailable")

	if err.Code != CodeSourceError {
		t.Errorf("Expected code '%s', got '%s'", CodeSourceError, err.Code)
	}
	if err.Message != "redis unavailable" {
		t.Errorf("Expected message 'redis unavailable', got '%s'", err.Message)
	}
	if err.Details != nil {
		t.Errorf("Expected nil details, got %v", err.Details)
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{
		"entity_id": "m1",
		"window":    "7d",
	}

	err := NewServiceErrorWithDetails(CodeNotFound, "not found", details)

	if err.Details["entity_id"] != "m1" {
		t.Errorf("Expected entity_id 'm1', got '%v'", err.Details["entity_id"])
	}
	if err.Details["window"] != "7d" {
		t.Errorf("Expected window '7d', got '%v'", err.Details["window"])
	}
}

func TestAsServiceError(t *testing.T) {
	svcErr := NewServiceError(CodeInvalidRequest, "bad window")
	wrapped := fmt.Errorf("analyze: %w", svcErr)

	got, ok := AsServiceError(wrapped)
	if !ok {
		t.Fatal("Expected wrapped ServiceError to be found")
	}
	if got.Code != CodeInvalidRequest {
		t.Errorf("Expected code '%s', got '%s'", CodeInvalidRequest, got.Code)
	}

	if _, ok := AsServiceError(errors.New("plain")); ok {
		t.Error("Expected plain error not to be a ServiceError")
	}
}
