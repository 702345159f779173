package validator

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-reading-service/internal/db"
	"github.com/septivank/meter-reading-service/tools/timeparser"
)

var (
	customerCodePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	typeFilterPattern   = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// image MIME type -> file extension
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{IsValid: false, Reason: fmt.Sprintf(format, args...)}
}

// UploadData is the raw upload request
type UploadData struct {
	Image           string
	CustomerCode    string
	MeasureDatetime string
	MeasureType     string
}

// Upload is a validated upload request
type Upload struct {
	Image           []byte
	MIMEType        string
	Extension       string
	CustomerCode    string
	MeasureType     string
	MeasureDatetime time.Time
}

// ConfirmData is the raw confirmation request
type ConfirmData struct {
	MeasureUUID    string
	ConfirmedValue *int64
}

// Confirm is a validated confirmation request
type Confirm struct {
	ID    uuid.UUID
	Value int64
}

// Validator checks API input against the reading rules
type Validator struct {
	maxImageBytes int
}

// NewValidator creates a validator rejecting decoded images above maxImageBytes (0 = unlimited)
func NewValidator(maxImageBytes int) *Validator {
	return &Validator{
		maxImageBytes: maxImageBytes,
	}
}

// ValidateUpload validates and decodes an upload request.
// A missing measure_datetime defaults to now.
func (v *Validator) ValidateUpload(in UploadData, now time.Time) (Upload, ValidationResult) {
	customer, err := SanitizeCustomerCode(in.CustomerCode)
	if err != nil {
		return Upload{}, invalid("%v", err)
	}

	measureType, ok := NormalizeMeasureType(in.MeasureType)
	if !ok {
		return Upload{}, invalid("measure type must be 'gas' or 'water'")
	}

	measureTime, err := timeparser.ParseMeasureDatetime(in.MeasureDatetime, now)
	if err != nil {
		return Upload{}, invalid("invalid measure_datetime: %v", err)
	}

	img, mime, ext, err := v.DecodeImage(in.Image)
	if err != nil {
		return Upload{}, invalid("%v", err)
	}

	return Upload{
		Image:           img,
		MIMEType:        mime,
		Extension:       ext,
		CustomerCode:    customer,
		MeasureType:     measureType,
		MeasureDatetime: measureTime.UTC(),
	}, ValidationResult{IsValid: true}
}

// ValidateConfirm validates a confirmation request
func (v *Validator) ValidateConfirm(in ConfirmData) (Confirm, ValidationResult) {
	id, err := ParseMeasureUUID(in.MeasureUUID)
	if err != nil {
		return Confirm{}, invalid("%v", err)
	}
	if in.ConfirmedValue == nil {
		return Confirm{}, invalid("confirmed_value is required")
	}
	if *in.ConfirmedValue < 0 {
		return Confirm{}, invalid("confirmed_value must not be negative")
	}
	return Confirm{ID: id, Value: *in.ConfirmedValue}, ValidationResult{IsValid: true}
}

// DecodeImage decodes a base64 image, optionally wrapped in a data URI,
// and sniffs its MIME type from the decoded bytes
func (v *Validator) DecodeImage(s string) ([]byte, string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", "", fmt.Errorf("image is required")
	}
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", "", fmt.Errorf("malformed data URI")
		}
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var urlErr error
		if data, urlErr = base64.URLEncoding.DecodeString(s); urlErr != nil {
			return nil, "", "", fmt.Errorf("image is not valid base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", "", fmt.Errorf("image is empty")
	}
	if v.maxImageBytes > 0 && len(data) > v.maxImageBytes {
		return nil, "", "", fmt.Errorf("image exceeds %d bytes", v.maxImageBytes)
	}

	mime := sniffImageMIME(data)
	ext, ok := imageExtensions[mime]
	if !ok {
		return nil, "", "", fmt.Errorf("unsupported image type %q", mime)
	}
	return data, mime, ext, nil
}

func sniffImageMIME(data []byte) string {
	// ftyp box with a HEIF brand; http.DetectContentType does not know HEIC
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "mif1", "msf1":
			return "image/heic"
		}
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// NormalizeMeasureType maps a case-insensitive measure type to its stored form
func NormalizeMeasureType(s string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range db.MeasureTypes {
		if upper == t {
			return t, true
		}
	}
	return "", false
}

// SanitizeCustomerCode trims and checks the customer code charset
func SanitizeCustomerCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("customer_code is required")
	}
	if len(s) > 255 {
		return "", fmt.Errorf("customer_code is too long")
	}
	if !customerCodePattern.MatchString(s) {
		return "", fmt.Errorf("customer_code contains disallowed characters")
	}
	return s, nil
}

// SanitizeMeasureTypeFilter checks the optional list filter; empty means no filter
func SanitizeMeasureTypeFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) > 16 || !typeFilterPattern.MatchString(s) {
		return "", fmt.Errorf("measure_type filter contains disallowed characters")
	}
	return strings.ToUpper(s), nil
}

// ParseMeasureUUID parses a reading id
func ParseMeasureUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid measure_uuid format, must be a valid UUID")
	}
	return id, nil
}

// SanitizeIP returns the textual IP or an empty string when s is not an address
func SanitizeIP(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
