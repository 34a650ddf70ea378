package fulfillment

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/storehawk/apple-pickup-cn/internal/domain"
)

// DefaultEndpoint is Apple's mainland-China retail fulfillment endpoint.
const DefaultEndpoint = "https://www.apple.com.cn/shop/fulfillment-messages"

// defaultUserAgent mirrors what the online store sends; the endpoint answers
// 403 to obviously non-browser agents.
const defaultUserAgent = "Mozilla/5.0"

// Store codes look like R320; upstream owns the exact shape, so this check is
// advisory only.
var storeCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,7}$`)

// RequestSpec is a fully encoded upstream request.
type RequestSpec struct {
	URL     string
	Method  string
	Headers map[string]string
}

// ValidStoreCode reports whether code matches the expected store-code shape.
// Callers may warn on a mismatch but should still send the query.
func ValidStoreCode(code string) bool {
	return storeCodePattern.MatchString(strings.TrimSpace(code))
}

// BuildRequest encodes the query into the form the fulfillment endpoint
// expects. Pure: no I/O, no logging.
func (c *Client) BuildRequest(q domain.Query) (RequestSpec, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return RequestSpec{}, fmt.Errorf("%w: location is empty", ErrInvalidQuery)
	}

	params := url.Values{}
	params.Set("pl", "true")
	params.Set("mt", "regular")
	params.Set("location", location)
	if store := strings.TrimSpace(q.Store); store != "" {
		params.Set("store", store)
	}
	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		params.Set("search", term)
	}
	for i, part := range q.Parts {
		params.Set(fmt.Sprintf("parts.%d", i), part)
	}

	return RequestSpec{
		URL:     c.endpoint + "?" + params.Encode(),
		Method:  "GET",
		Headers: map[string]string{"User-Agent": defaultUserAgent},
	}, nil
}
