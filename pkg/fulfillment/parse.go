package fulfillment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/storehawk/apple-pickup-cn/internal/domain"
)

// The payload shape is reverse-engineered from observed responses; the
// endpoint is upstream-owned and may change without notice. Pointers along
// the spine let us tell "absent" from "empty" when validating.
type payload struct {
	Body *struct {
		Content *struct {
			PickupMessage *pickupMessage `json:"pickupMessage"`
		} `json:"content"`
	} `json:"body"`
}

type pickupMessage struct {
	Stores []storeEntry `json:"stores"`
}

type storeEntry struct {
	StoreName       string `json:"storeName"`
	RetailStoreName string `json:"retailStoreName"`
	StoreNumber     string `json:"storeNumber"`
	City            string `json:"city"`
	Address         struct {
		City string `json:"city"`
	} `json:"address"`
	Parts partsAvailability `json:"partsAvailability"`
}

type partInfo struct {
	PickupDisplay           string `json:"pickupDisplay"`
	StorePickupLabel        string `json:"storePickupLabel"`
	PickupSearchQuote       string `json:"pickupSearchQuote"`
	StorePickupQuote        string `json:"storePickupQuote"`
	StorePickupQuoteShort   string `json:"storePickupQuoteShort"`
	ProductAvailabilityText string `json:"productAvailabilityText"`
	StorePickupProductTitle string `json:"storePickupProductTitle"`
	Title                   string `json:"title"`
}

type partEntry struct {
	Number string
	Info   partInfo
}

// partsAvailability is a JSON object keyed by part number. It is decoded
// token-by-token so the upstream key order survives; a plain map would
// randomize it.
type partsAvailability struct {
	entries []partEntry
}

func (p *partsAvailability) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// Null or some other non-object value; treat the store as listing
		// nothing rather than failing the whole payload.
		return nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("partsAvailability has a non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var info partInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			// Upstream occasionally nests non-object values here; skip them
			// the way the store page does.
			continue
		}
		p.entries = append(p.entries, partEntry{Number: key, Info: info})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Parse decodes a fulfillment payload into availability records, applying the
// query's model and part filters. The returned sequence is lazy, finite,
// single-use, and preserves upstream order — the endpoint ranks stores by
// distance when a location is given, and re-sorting would destroy that.
func Parse(raw []byte, q domain.Query) (iter.Seq[domain.AvailabilityRecord], error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.Body == nil || p.Body.Content == nil || p.Body.Content.PickupMessage == nil {
		return nil, fmt.Errorf("%w: missing body.content.pickupMessage", ErrMalformedResponse)
	}

	stores := p.Body.Content.PickupMessage.Stores
	consumed := false

	return func(yield func(domain.AvailabilityRecord) bool) {
		if consumed {
			return
		}
		consumed = true

		for _, st := range stores {
			for _, pe := range st.Parts.entries {
				rec := buildRecord(st, pe, q)
				if !q.WantsModel(rec.ModelName) || !q.WantsPart(rec.PartNumber) {
					continue
				}
				if !yield(rec) {
					return
				}
			}
		}
	}, nil
}

func buildRecord(st storeEntry, pe partEntry, q domain.Query) domain.AvailabilityRecord {
	name := st.StoreName
	if name == "" {
		name = st.RetailStoreName
	}
	if name == "" {
		name = "Unknown store"
	}

	city := st.City
	if city == "" {
		city = st.Address.City
	}

	status := pickupStatus(pe.Info)

	model := productTitle(pe.Info)
	if model == "" {
		model = q.SearchTerm
	}

	return domain.AvailabilityRecord{
		StoreCode:       st.StoreNumber,
		StoreName:       name,
		City:            city,
		PartNumber:      pe.Number,
		ModelName:       model,
		PickupStatus:    status,
		PickupAvailable: pickupAvailable(status),
		PickupQuote:     pickupQuote(pe.Info),
	}
}

func pickupStatus(info partInfo) string {
	status := info.PickupDisplay
	if status == "" {
		status = info.StorePickupLabel
	}
	if status == "" {
		status = "unknown"
	}
	return strings.ToLower(status)
}

// pickupAvailable normalizes the reverse-engineered status strings. Anything
// mentioning "not" or "unavailable" wins over the positive forms.
func pickupAvailable(status string) bool {
	if strings.Contains(status, "not") || strings.Contains(status, "unavailable") {
		return false
	}
	switch strings.ReplaceAll(status, " ", "") {
	case "available", "availabletoday", "availablesoon":
		return true
	}
	return false
}

func pickupQuote(info partInfo) string {
	for _, s := range []string{
		info.PickupSearchQuote,
		info.StorePickupQuote,
		info.ProductAvailabilityText,
		info.StorePickupQuoteShort,
	} {
		if s != "" {
			return s
		}
	}
	return ""
}

func productTitle(info partInfo) string {
	if info.StorePickupProductTitle != "" {
		return info.StorePickupProductTitle
	}
	return info.Title
}
