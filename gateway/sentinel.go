package gateway

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-intake/flow"
)

// LookupRequest asks for the product history of one customer.
type LookupRequest struct {
	GcaID       string
	IssueDate   string
	CountryCode string
}

func (LookupRequest) Type() string { return "sentinel.lookup" }

func (r LookupRequest) Validate() error {
	if strings.TrimSpace(r.GcaID) == "" {
		return errors.New("gca id required")
	}
	return nil
}

// LookupResult is the filtered product history plus the supplementary
// patient data of the customer record.
type LookupResult struct {
	Products map[string]flow.SentinelProduct
	UserData *flow.SentinelUserData
}

// Action turns the result into the feedback action for the machine.
func (r LookupResult) Action(fetchedFor string) flow.SetSentinelProducts {
	return flow.SetSentinelProducts{
		Products:   r.Products,
		UserData:   r.UserData,
		FetchedFor: fetchedFor,
	}
}

type customerRecord struct {
	SerialNumberList []flow.SentinelProduct `json:"serial_number_list"`
	CustomerWeight   *struct {
		Value any    `json:"value"`
		Unit  string `json:"unit"`
	} `json:"customer_weight"`
	PartnersData []struct {
		Name string `json:"name"`
	} `json:"partners_data"`
	Gender string `json:"gender"`
}

// SentinelClient reads the customer record of the product history service.
type SentinelClient struct {
	client
}

func NewSentinelClient(baseURL string, opts ...ClientOption) *SentinelClient {
	return &SentinelClient{client: newClient(baseURL, opts...)}
}

// Query fetches and filters the product history for req.
func (c *SentinelClient) Query(ctx context.Context, req LookupRequest) (LookupResult, error) {
	if err := req.Validate(); err != nil {
		return LookupResult{}, err
	}
	path := "/v1/sentinel/customer/gca_id/" + url.PathEscape(strings.TrimSpace(req.GcaID)) + "?partners_source=pump"

	var record customerRecord
	if err := c.do(ctx, "sentinel lookup", "GET", path, nil, &record); err != nil {
		return LookupResult{}, err
	}

	products := FilterProducts(record.SerialNumberList, req.IssueDate, req.CountryCode, c.catalog)
	c.logger.Debug("sentinel lookup gca_id=%s candidates=%d kept=%d", req.GcaID, len(record.SerialNumberList), len(products))
	return LookupResult{
		Products: products,
		UserData: record.userData(),
	}, nil
}

func (r customerRecord) userData() *flow.SentinelUserData {
	data := &flow.SentinelUserData{Gender: r.Gender}
	if r.CustomerWeight != nil {
		data.Weight = flow.Weight{Value: formatScalar(r.CustomerWeight.Value), Unit: r.CustomerWeight.Unit}
	}
	if len(r.PartnersData) > 0 {
		data.ConnectedDevice = connectedDevice(r.PartnersData[0].Name)
	}
	return data
}

// connectedDevice reports the catch-all partner as no device.
func connectedDevice(name string) string {
	if name == "Other" {
		return "None"
	}
	return name
}

func formatScalar(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	}
	return ""
}
