// Package codec converts one order to and from its single-line record:
//
//	id;client;status;total;createdAt;key:qty,key:qty[|key:price,key:price]
//
// The optional suffix after '|' is the frozen price snapshot.
package codec

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
)

// TimeLayout is the createdAt format written to the record.
const TimeLayout = "2006-01-02T15:04:05"

const (
	fieldSep    = ";"
	pairSep     = ","
	kvSep       = ":"
	snapshotSep = "|"
)

// Now is used to back-fill a missing createdAt.
var Now = time.Now

// Encode renders o as one record line without the trailing newline.
func Encode(o domain.Order) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(o.ID))
	b.WriteString(fieldSep)
	b.WriteString(o.Client)
	b.WriteString(fieldSep)
	b.WriteString(string(o.Status))
	b.WriteString(fieldSep)
	b.WriteString(money.Format(o.Total))
	b.WriteString(fieldSep)
	b.WriteString(o.CreatedAt.Local().Format(TimeLayout))
	b.WriteString(fieldSep)

	for i, k := range o.ItemKeys() {
		if i > 0 {
			b.WriteString(pairSep)
		}
		b.WriteString(k)
		b.WriteString(kvSep)
		b.WriteString(strconv.Itoa(o.Items[k]))
	}

	if len(o.FrozenPrices) > 0 {
		b.WriteString(snapshotSep)
		for i, k := range sortedPriceKeys(o.FrozenPrices) {
			if i > 0 {
				b.WriteString(pairSep)
			}
			b.WriteString(k)
			b.WriteString(kvSep)
			b.WriteString(money.Format(o.FrozenPrices[k]))
		}
	}
	return b.String()
}

// Decode parses one record line. Keys are normalised to catalog keys.
func Decode(line string) (domain.Order, error) {
	line = strings.TrimRight(line, "\r\n")
	head, snapshot, hasSnapshot := strings.Cut(line, snapshotSep)

	fields := strings.Split(head, fieldSep)
	if len(fields) < 4 {
		return domain.Order{}, apperr.Validationf("malformed order record: expected at least 4 fields, got %d", len(fields))
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || id <= 0 {
		return domain.Order{}, apperr.Validationf("malformed order record: bad id %q", fields[0])
	}

	status, err := domain.ParseStatus(strings.TrimSpace(fields[2]))
	if err != nil {
		return domain.Order{}, err
	}

	o := domain.NewOrder(id, strings.TrimSpace(fields[1]), Now())
	o.Status = status
	o.Total = money.Parse(fields[3])

	if len(fields) > 4 {
		if t, ok := parseTime(fields[4]); ok {
			o.CreatedAt = t
		}
	}

	if len(fields) > 5 {
		if err := decodePairs(fields[5], func(key, value string) error {
			qty, err := strconv.Atoi(value)
			if err != nil || qty <= 0 {
				return apperr.Validationf("malformed order record %d: bad qty %q for %s", id, value, key)
			}
			o.Items[key] += qty
			return nil
		}); err != nil {
			return domain.Order{}, err
		}
	}

	if hasSnapshot {
		if err := decodePairs(snapshot, func(key, value string) error {
			price, err := decimal.NewFromString(value)
			if err != nil {
				return apperr.Validationf("malformed order record %d: bad price %q for %s", id, value, key)
			}
			o.FrozenPrices[key] = money.Round(price)
			return nil
		}); err != nil {
			return domain.Order{}, err
		}
	}

	return o, nil
}

func decodePairs(field string, fn func(key, value string) error) error {
	for _, pair := range strings.Split(field, pairSep) {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		// prices never contain ':', so the last colon separates the value
		idx := strings.LastIndex(pair, kvSep)
		if idx <= 0 {
			return apperr.Validationf("malformed order record: bad pair %q", pair)
		}
		key := catalogdomain.Key(pair[:idx])
		if key == "" {
			return apperr.Validationf("malformed order record: empty key in %q", pair)
		}
		if err := fn(key, strings.TrimSpace(pair[idx+1:])); err != nil {
			return err
		}
	}
	return nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(TimeLayout, s, time.Local); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func sortedPriceKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
