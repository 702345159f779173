package validator_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/septivank/meter-reading-service/internal/db"
	"github.com/septivank/meter-reading-service/internal/validator"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...)

func pngBase64() string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

func TestValidateUpload_ValidData(t *testing.T) {
	v := validator.NewValidator(0)
	now := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)

	up, result := v.ValidateUpload(validator.UploadData{
		Image:           pngBase64(),
		CustomerCode:    "123456789",
		MeasureDatetime: "2024-08-27T10:57:55Z",
		MeasureType:     "gas",
	}, now)

	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if up.MeasureType != db.MeasureTypeGas {
		t.Errorf("Expected GAS, got %s", up.MeasureType)
	}
	if up.MIMEType != "image/png" || up.Extension != "png" {
		t.Errorf("Expected png image, got %s/%s", up.MIMEType, up.Extension)
	}
	expected := time.Date(2024, 8, 27, 10, 57, 55, 0, time.UTC)
	if !up.MeasureDatetime.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, up.MeasureDatetime)
	}
}

func TestValidateUpload_DataURIAndDefaultTime(t *testing.T) {
	v := validator.NewValidator(0)
	now := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)

	up, result := v.ValidateUpload(validator.UploadData{
		Image:        "data:image/png;base64," + pngBase64(),
		CustomerCode: "abc",
		MeasureType:  "WATER",
	}, now)

	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if !up.MeasureDatetime.Equal(now) {
		t.Errorf("Expected default time %v, got %v", now, up.MeasureDatetime)
	}
	if up.MeasureType != db.MeasureTypeWater {
		t.Errorf("Expected WATER, got %s", up.MeasureType)
	}
}

func TestValidateUpload_InvalidMeasureType(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateUpload(validator.UploadData{
		Image:        pngBase64(),
		CustomerCode: "abc",
		MeasureType:  "electricity",
	}, time.Now())

	if result.IsValid {
		t.Fatal("Expected invalid result for electricity")
	}
	if result.Reason != "measure type must be 'gas' or 'water'" {
		t.Errorf("Unexpected reason '%s'", result.Reason)
	}
}

func TestValidateUpload_BadCustomerCode(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateUpload(validator.UploadData{
		Image:        pngBase64(),
		CustomerCode: "abc'; drop table readings;--",
		MeasureType:  "gas",
	}, time.Now())

	if result.IsValid {
		t.Error("Expected invalid result for disallowed characters")
	}
}

func TestValidateUpload_NotBase64(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateUpload(validator.UploadData{
		Image:        "not base64 at all!",
		CustomerCode: "abc",
		MeasureType:  "gas",
	}, time.Now())

	if result.IsValid {
		t.Error("Expected invalid result for bad base64")
	}
}

func TestValidateUpload_NotAnImage(t *testing.T) {
	v := validator.NewValidator(0)

	_, result := v.ValidateUpload(validator.UploadData{
		Image:        base64.StdEncoding.EncodeToString([]byte("just some text")),
		CustomerCode: "abc",
		MeasureType:  "gas",
	}, time.Now())

	if result.IsValid {
		t.Error("Expected invalid result for non-image payload")
	}
}

func TestValidateUpload_TooLarge(t *testing.T) {
	v := validator.NewValidator(8)

	_, result := v.ValidateUpload(validator.UploadData{
		Image:        pngBase64(),
		CustomerCode: "abc",
		MeasureType:  "gas",
	}, time.Now())

	if result.IsValid {
		t.Error("Expected invalid result for oversized image")
	}
}

func TestValidateConfirm(t *testing.T) {
	v := validator.NewValidator(0)
	value := int64(1015)

	c, result := v.ValidateConfirm(validator.ConfirmData{
		MeasureUUID:    "6f1c1c62-2f5e-4bb1-9d53-3f0e7c3a2b11",
		ConfirmedValue: &value,
	})
	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if c.Value != 1015 {
		t.Errorf("Expected 1015, got %d", c.Value)
	}

	if _, result := v.ValidateConfirm(validator.ConfirmData{MeasureUUID: "nope", ConfirmedValue: &value}); result.IsValid {
		t.Error("Expected invalid result for bad uuid")
	}
	if _, result := v.ValidateConfirm(validator.ConfirmData{MeasureUUID: c.ID.String()}); result.IsValid {
		t.Error("Expected invalid result for missing value")
	}
	negative := int64(-1)
	if _, result := v.ValidateConfirm(validator.ConfirmData{MeasureUUID: c.ID.String(), ConfirmedValue: &negative}); result.IsValid {
		t.Error("Expected invalid result for negative value")
	}
}

func TestSanitizeMeasureTypeFilter(t *testing.T) {
	got, err := validator.SanitizeMeasureTypeFilter("wat")
	if err != nil || got != "WAT" {
		t.Errorf("Expected WAT, got %q (%v)", got, err)
	}
	if got, err := validator.SanitizeMeasureTypeFilter(""); err != nil || got != "" {
		t.Errorf("Expected empty filter, got %q (%v)", got, err)
	}
	if _, err := validator.SanitizeMeasureTypeFilter("%gas"); err == nil {
		t.Error("Expected error for wildcard characters")
	}
}

func TestSanitizeIP(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1:5432": "10.0.0.1",
		"::1":           "::1",
		"[::1]:80":      "::1",
		"not-an-ip":     "",
	}
	for in, want := range cases {
		if got := validator.SanitizeIP(in); got != want {
			t.Errorf("SanitizeIP(%q) = %q, want %q", in, got, want)
		}
	}
}
