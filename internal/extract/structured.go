package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PriceFromHTML recovers a price from structured product metadata: JSON-LD
// blocks first, then OpenGraph/product meta tags, then itemprop microdata.
// Structured sources beat free-text scans because a raw-text match can land
// on an unrelated dollar figure such as a shipping fee.
func PriceFromHTML(html string) *float64 {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var found *float64
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := s.Text()
		if strings.TrimSpace(raw) == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return true
		}
		if price := priceFromJSONLD(data); price != nil {
			found = price
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, prop := range []string{"product:price:amount", "og:price:amount"} {
		sel := doc.Find(`meta[property="` + prop + `"]`).First()
		if content, ok := sel.Attr("content"); ok {
			if price := ParseAmount(content); price != nil {
				return price
			}
		}
	}

	tag := doc.Find(`[itemprop="price"]`).First()
	if tag.Length() > 0 {
		if content, ok := tag.Attr("content"); ok {
			if price := ParseAmount(content); price != nil {
				return price
			}
		}
		if price := ParseAmount(tag.Text()); price != nil {
			return price
		}
	}

	return nil
}

// priceFromJSONLD walks an arbitrary JSON-LD value looking for the offer
// price. "price" and "lowPrice" keys win over a recursive descent so the
// top-level product offer is preferred over nested review markup.
func priceFromJSONLD(data any) *float64 {
	switch v := data.(type) {
	case map[string]any:
		if raw, ok := v["price"]; ok {
			if price := normalizeJSONNumber(raw); price != nil {
				return price
			}
		}
		if raw, ok := v["lowPrice"]; ok {
			if price := normalizeJSONNumber(raw); price != nil {
				return price
			}
		}
		if offers, ok := v["offers"]; ok {
			if price := priceFromJSONLD(offers); price != nil {
				return price
			}
		}
		for _, child := range v {
			if price := priceFromJSONLD(child); price != nil {
				return price
			}
		}
	case []any:
		for _, item := range v {
			if price := priceFromJSONLD(item); price != nil {
				return price
			}
		}
	}
	return nil
}

func normalizeJSONNumber(raw any) *float64 {
	switch v := raw.(type) {
	case float64:
		value := v
		return &value
	case string:
		return ParseAmount(v)
	default:
		return nil
	}
}
