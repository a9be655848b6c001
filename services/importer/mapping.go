package importer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"incentivehub/pkg/identity"
)

// fieldKeywords drives header suggestion. Lists mix Portuguese and English
// because source spreadsheets come in both.
var fieldKeywords = map[string][]string{
	FieldOrderID:        {"pedido", "order", "num_pedido", "numero_pedido", "nota"},
	FieldSellerDocument: {"cpf", "vendedor", "seller", "documento"},
	FieldOrgDocument:    {"cnpj", "empresa", "loja", "org"},
	FieldSaleDate:       {"data", "date", "emissao"},
	FieldValue:          {"valor", "value", "total", "preco", "price"},
	FieldQuantity:       {"qtd", "quantidade", "quantity", "qty"},
	FieldProduct:        {"produto", "product", "item", "sku"},
}

// suggestion order is fixed so equal-confidence ties are deterministic.
var fieldOrder = []string{
	FieldOrderID, FieldSellerDocument, FieldOrgDocument,
	FieldSaleDate, FieldValue, FieldQuantity, FieldProduct,
}

func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SuggestMappings proposes a target field per header, sorted by confidence
// descending. Headers matching nothing map to the ignore sentinel with
// confidence zero so callers see every column accounted for.
func SuggestMappings(headers []string) []Mapping {
	mappings := make([]Mapping, 0, len(headers))

	for _, header := range headers {
		normalized := normalizeHeader(header)
		raw := strings.ToLower(header)

		best := Mapping{SourceColumn: header, TargetField: FieldIgnore}
		for _, field := range fieldOrder {
			keywords := fieldKeywords[field]
			matched := 0
			for _, kw := range keywords {
				if strings.Contains(normalized, kw) || strings.Contains(raw, kw) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			confidence := int(math.Min(95, math.Round(float64(matched)/float64(len(keywords))*100)))
			if confidence > best.Confidence {
				best.TargetField = field
				best.Confidence = confidence
			}
		}
		mappings = append(mappings, best)
	}

	sort.SliceStable(mappings, func(i, j int) bool {
		return mappings[i].Confidence > mappings[j].Confidence
	})
	return mappings
}

// MapRow projects one sheet row through the column mappings, applying the
// per-field transform. A missing source column or short row leaves the
// target key absent rather than erroring.
func MapRow(row []any, headers []string, mappings []Mapping) map[string]any {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	mapped := make(map[string]any, len(mappings))
	for _, m := range mappings {
		if m.TargetField == FieldIgnore {
			continue
		}
		col, ok := index[m.SourceColumn]
		if !ok || col >= len(row) {
			continue
		}
		mapped[m.TargetField] = transform(m.TargetField, row[col])
	}
	return mapped
}

func transform(targetField string, raw any) any {
	switch targetField {
	case FieldSellerDocument:
		return normalizeDocument(raw, identity.ValidatePersonalID)
	case FieldOrgDocument:
		return normalizeDocument(raw, identity.ValidateOrgID)
	case FieldSaleDate:
		return normalizeDate(raw)
	case FieldValue:
		return parseCurrencyValue(raw)
	case FieldQuantity:
		return parseQuantity(raw)
	default:
		return trimmedString(raw)
	}
}

func normalizeDocument(raw any, validate identity.Validator) string {
	s := trimmedString(raw)
	if result := validate(s); result.Valid {
		return result.Canonical
	}
	return s
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02T15:04:05Z07:00",
}

// normalizeDate canonicalizes parseable dates to ISO form and passes
// everything else through untouched for the validator to flag.
func normalizeDate(raw any) any {
	if ts, ok := raw.(time.Time); ok {
		return ts.Format("2006-01-02")
	}
	s := trimmedString(raw)
	if parsed, ok := parseDate(s); ok {
		return parsed.Format("2006-01-02")
	}
	return s
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseCurrency turns a human currency string into a float: every character
// outside [0-9.,] is stripped and ',' is the decimal separator, so
// "R$ 1.234,56" parses to 1234.56. Unparseable input yields 0.
func ParseCurrency(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseCurrencyValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return ParseCurrency(trimmedString(raw))
	}
}

func parseQuantity(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		q, err := strconv.ParseFloat(trimmedString(raw), 64)
		if err != nil {
			return 0
		}
		return q
	}
}

func trimmedString(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
