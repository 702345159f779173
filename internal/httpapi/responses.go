package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/septivank/meter-reading-service/internal/db"
)

// Error codes returned in error bodies
const (
	CodeInvalidData           = "INVALID_DATA"
	CodeDoubleReport          = "DOUBLE_REPORT"
	CodeMeasureNotFound       = "MEASURE_NOT_FOUND"
	CodeConfirmationDuplicate = "CONFIRMATION_DUPLICATE"
	CodeMeasuresNotFound      = "MEASURES_NOT_FOUND"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	CodeNotFound              = "NOT_FOUND"
	CodeInternal              = "INTERNAL_ERROR"
)

const unexpectedErrorMessage = "an unexpected error occurred, please try again later."

type link struct {
	Href string `json:"href"`
}

type linksJSON struct {
	ImageURL *link `json:"image_url,omitempty"`
	Self     link  `json:"self"`
	Next     link  `json:"next"`
	Prev     link  `json:"prev"`
}

func imageLink(url string) *link {
	if url == "" {
		return nil
	}
	return &link{Href: url}
}

func uploadLinks(imageURL string) linksJSON {
	return linksJSON{
		ImageURL: imageLink(imageURL),
		Self:     link{Href: "/api/upload"},
		Next:     link{Href: "/api/confirm"},
		Prev:     link{Href: "/api/{customer-code}/list"},
	}
}

func confirmLinks(imageURL string) linksJSON {
	return linksJSON{
		ImageURL: imageLink(imageURL),
		Self:     link{Href: "/api/confirm"},
		Next:     link{Href: "/api/{customer-code}/list"},
		Prev:     link{Href: "/api/upload"},
	}
}

func listLinks(customerCode string) linksJSON {
	self := "/api/{customer-code}/list"
	if customerCode != "" {
		self = "/api/" + customerCode + "/list"
	}
	return linksJSON{
		Self: link{Href: self},
		Next: link{Href: "/api/upload"},
		Prev: link{Href: "/api/confirm"},
	}
}

type uploadRequestJSON struct {
	Image           string `json:"image"`
	ImageData       string `json:"image_data"`
	CustomerCode    string `json:"customer_code"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
}

type uploadResponseJSON struct {
	StatusCode    int       `json:"statusCode"`
	Message       string    `json:"message"`
	MeasureValue  *int64    `json:"measure_value"`
	MeasureUUID   string    `json:"measure_uuid"`
	ImageURL      string    `json:"image_url"`
	Suspicious    bool      `json:"suspicious,omitempty"`
	AnomalyReason string    `json:"anomaly_reason,omitempty"`
	Links         linksJSON `json:"_links"`
}

type confirmRequestJSON struct {
	MeasureUUID    string `json:"measure_uuid"`
	ConfirmedValue *int64 `json:"confirmed_value"`
}

type confirmResponseJSON struct {
	Success      bool      `json:"success"`
	StatusCode   int       `json:"statusCode"`
	Message      string    `json:"message"`
	MeasureValue *int64    `json:"measure_value"`
	MeasureUUID  string    `json:"measure_uuid"`
	Links        linksJSON `json:"_links"`
}

type measureJSON struct {
	MeasureUUID     string `json:"measure_uuid"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
	MeasureValue    *int64 `json:"measure_value"`
	HasConfirmed    bool   `json:"has_confirmed"`
	ImageURL        string `json:"image_url"`
}

type listResponseJSON struct {
	StatusCode   int           `json:"statusCode"`
	CustomerCode string        `json:"customer_code"`
	Measures     []measureJSON `json:"measures"`
	Links        linksJSON     `json:"_links"`
}

type apiErrorJSON struct {
	StatusCode int       `json:"statusCode"`
	ErrorCode  string    `json:"error_code"`
	Message    string    `json:"message"`
	RequestID  string    `json:"request_id,omitempty"`
	Links      linksJSON `json:"_links"`
}

func toMeasureJSON(r db.Reading) measureJSON {
	return measureJSON{
		MeasureUUID:     r.ID.String(),
		MeasureDatetime: formatTime(r.MeasureDatetime),
		MeasureType:     r.MeasureType,
		MeasureValue:    r.MeasureValue,
		HasConfirmed:    r.HasConfirmed,
		ImageURL:        r.ImageURL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string, links linksJSON) {
	_ = writeJSON(w, status, apiErrorJSON{
		StatusCode: status,
		ErrorCode:  code,
		Message:    message,
		RequestID:  w.Header().Get("X-Request-Id"),
		Links:      links,
	})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
