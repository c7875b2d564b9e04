package pricing

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderNumberFunc produces an order number for an order assembled at now.
type OrderNumberFunc func(now time.Time) string

var orderNumberPattern = regexp.MustCompile(`^(ORD-\d{4}-\d{3}-\d{4}|LPX-\d{5}|ORD-[0-9A-F]{32})$`)

// ValidOrderNumber reports whether s has one of the formats produced by the
// strategies in this package.
func ValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}

// TimestampOrderNumber formats ORD-YYYY-DDD-DDDD: the year, a random
// three digit disambiguator and the last four digits of the epoch-millis
// timestamp.
func TimestampOrderNumber(now time.Time) string {
	return timestampOrderNumber(now, rand.IntN)
}

// ShortOrderNumber formats LPX-NNNNN with a random five digit number.
func ShortOrderNumber(time.Time) string {
	return shortOrderNumber(rand.IntN)
}

// UUIDOrderNumber derives the number from a random UUID, trading readability
// for collision resistance.
func UUIDOrderNumber(time.Time) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// NewSeededOrderNumber returns a TimestampOrderNumber variant drawing from r.
// Used where a reproducible sequence is needed.
func NewSeededOrderNumber(r *rand.Rand) OrderNumberFunc {
	return func(now time.Time) string {
		return timestampOrderNumber(now, r.IntN)
	}
}

// OrderNumberStrategy resolves a configured strategy name.
func OrderNumberStrategy(name string) (OrderNumberFunc, error) {
	switch strings.ToLower(name) {
	case "", "timestamp":
		return TimestampOrderNumber, nil
	case "short":
		return ShortOrderNumber, nil
	case "uuid":
		return UUIDOrderNumber, nil
	default:
		return nil, fmt.Errorf("unknown order number strategy %q", name)
	}
}

func timestampOrderNumber(now time.Time, intN func(int) int) string {
	return fmt.Sprintf("ORD-%04d-%03d-%04d", now.Year(), intN(1000), now.UnixMilli()%10000)
}

func shortOrderNumber(intN func(int) int) string {
	return fmt.Sprintf("LPX-%d", 10000+intN(90000))
}
