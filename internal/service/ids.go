package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderID returns ORD-<unix millis>-<8 hex>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), randomHex(8))
}

// NewTrackingNumber returns TRK-<unix millis>-<6 upper hex>.
func NewTrackingNumber(now time.Time) string {
	return fmt.Sprintf("TRK-%d-%s", now.UnixMilli(), strings.ToUpper(randomHex(6)))
}

func randomHex(n int) string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:n]
}

func newEventID() string {
	return uuid.NewString()
}
