package stats

import (
	"encoding/json"
	"fmt"
)

// dayDocument is the cached shape of one seller-day of dashboard data.
// Documents written by earlier releases used "topProduct" for the rollup
// list and "productName" inside entries; the cache has no TTL, so both
// spellings must stay readable.
type dayDocument struct {
	SalesCount   int64        `json:"salesCount"`
	RevenueCents int64        `json:"revenueCents"`
	ProfitCents  int64        `json:"profitCents"`
	TopProducts  []dayProduct `json:"topProducts"`
}

type dayProduct struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	RevenueCents int64  `json:"revenueCents"`
}

func (p *dayProduct) UnmarshalJSON(data []byte) error {
	type alias struct {
		ProductID    string `json:"productId"`
		Name         string `json:"name"`
		ProductName  string `json:"productName"`
		Quantity     int64  `json:"quantity"`
		RevenueCents int64  `json:"revenueCents"`
	}
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ProductID = aux.ProductID
	p.Name = aux.Name
	if p.Name == "" {
		p.Name = aux.ProductName
	}
	p.Quantity = aux.Quantity
	p.RevenueCents = aux.RevenueCents
	return nil
}

func decodeDayDocument(raw []byte) (dayDocument, error) {
	type alias struct {
		SalesCount   int64        `json:"salesCount"`
		RevenueCents int64        `json:"revenueCents"`
		ProfitCents  int64        `json:"profitCents"`
		TopProducts  []dayProduct `json:"topProducts"`
		TopProduct   []dayProduct `json:"topProduct"`
	}
	var aux alias
	if err := json.Unmarshal(raw, &aux); err != nil {
		return dayDocument{}, fmt.Errorf("decode day document: %w", err)
	}
	doc := dayDocument{
		SalesCount:   aux.SalesCount,
		RevenueCents: aux.RevenueCents,
		ProfitCents:  aux.ProfitCents,
		TopProducts:  aux.TopProducts,
	}
	if len(doc.TopProducts) == 0 && len(aux.TopProduct) > 0 {
		doc.TopProducts = aux.TopProduct
	}
	return doc, nil
}

func encodeDayDocument(doc dayDocument) ([]byte, error) {
	return json.Marshal(doc)
}
