package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/sela-fruits/sela-store/internal/models"
)

const (
	orderIDPrefix      = "SELA"
	orderIDAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderIDGroups      = 3
	orderIDGroupWidth  = 4
	orderIDMaxAttempts = 3
)

var orderIDPattern = regexp.MustCompile(`^SELA-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// generateOrderID returns SELA-XXXX-XXXX-XXXX from crypto/rand
func generateOrderID() (string, error) {
	max := big.NewInt(int64(len(orderIDAlphabet)))
	var builder strings.Builder
	builder.WriteString(orderIDPrefix)
	for g := 0; g < orderIDGroups; g++ {
		builder.WriteByte('-')
		for i := 0; i < orderIDGroupWidth; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			builder.WriteByte(orderIDAlphabet[n.Int64()])
		}
	}
	return builder.String(), nil
}

// NormalizeOrderID upper-cases and checks the format; empty when invalid
func NormalizeOrderID(raw string) string {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if !orderIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// buildWhatsAppURL deep link with a prefilled order summary; empty without a shop number
func buildWhatsAppURL(number string, order *models.Order) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" || order == nil {
		return ""
	}
	var text strings.Builder
	fmt.Fprintf(&text, "Hello, I just placed order %s.\n", order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&text, "- %s x%d: %s %s\n", item.ProductName, item.Quantity, order.Currency, item.LineTotal.String())
	}
	fmt.Fprintf(&text, "Delivery: %s %s\n", order.Currency, order.DeliveryFee.String())
	fmt.Fprintf(&text, "Total: %s %s\n", order.Currency, order.TotalAmount.String())
	fmt.Fprintf(&text, "Deliver to: %s", order.DeliveryAddress)
	escaped := strings.ReplaceAll(url.QueryEscape(text.String()), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, escaped)
}
