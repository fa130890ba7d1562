// Package multientry decodes the compact multi-level alert strings emitted
// by the signal source: entry alerts of the form
// "L1,<price>:L2,<price>:L3,<price>:L4,<price>:ID,<correlationId>" and the
// companion close alerts "TP:ID,<id>" / "SL:ID,<id>".
package multientry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// ParseLevels decodes an entry alert string. Any subset and order of keys is
// tolerated and unknown keys are ignored; the returned levels are sorted
// L1 -> L4 regardless of input order. Quantity per level is
// baseAmount * n / price; L1 is a market order, L2-L4 are limit orders.
func ParseLevels(raw string, baseAmount float64) ([]domain.MultientryLevel, string, error) {
	if baseAmount <= 0 {
		return nil, "", fmt.Errorf("%w: multientry base amount must be positive", ports.ErrConfigurationError)
	}

	var (
		levels        []domain.MultientryLevel
		correlationID string
	)
	for _, segment := range strings.Split(raw, ":") {
		key, value, ok := strings.Cut(strings.TrimSpace(segment), ",")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "ID" {
			correlationID = value
			continue
		}
		n, ok := levelNumber(key)
		if !ok {
			continue // Unknown keys are ignored
		}
		price, err := strconv.ParseFloat(value, 64)
		if err != nil || price <= 0 {
			return nil, "", fmt.Errorf("%w: invalid price %q for level L%d", ports.ErrMalformedAlert, value, n)
		}
		kind := domain.KindLimit
		if n == 1 {
			kind = domain.KindMarket
		}
		levels = append(levels, domain.MultientryLevel{
			Level:    n,
			Price:    price,
			Quantity: baseAmount * float64(n) / price,
			Kind:     kind,
		})
	}

	if correlationID == "" {
		return nil, "", fmt.Errorf("%w: missing ID segment", ports.ErrMalformedAlert)
	}
	if len(levels) == 0 {
		return nil, "", fmt.Errorf("%w: no levels found", ports.ErrMalformedAlert)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
	return levels, correlationID, nil
}

// ParseClose decodes a close alert string, returning the close reason and
// the correlation id of the position to close. A missing ID segment is a
// parse failure, not a silent no-op.
func ParseClose(raw string) (domain.CloseReason, string, error) {
	segments := strings.Split(raw, ":")

	var reason domain.CloseReason
	switch strings.ToUpper(strings.TrimSpace(segments[0])) {
	case "TP":
		reason = domain.CloseReasonTakeProfit
	case "SL":
		reason = domain.CloseReasonStopLoss
	default:
		return "", "", fmt.Errorf("%w: close alert must start with TP or SL", ports.ErrMalformedAlert)
	}

	for _, segment := range segments[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(segment), ",")
		if !ok {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(key)) == "ID" && strings.TrimSpace(value) != "" {
			return reason, strings.TrimSpace(value), nil
		}
	}
	return "", "", fmt.Errorf("%w: missing ID segment", ports.ErrMalformedAlert)
}

func levelNumber(key string) (int, bool) {
	if len(key) != 2 || key[0] != 'L' {
		return 0, false
	}
	n := int(key[1] - '0')
	if n < 1 || n > domain.MultientryLevelCount {
		return 0, false
	}
	return n, true
}
