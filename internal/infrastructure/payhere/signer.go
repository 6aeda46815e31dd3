package payhere

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zatekoja/consultbook/internal/domain/entities"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// Signer implements the gateway's two-stage MD5 signature scheme. The shared
// secret is hashed first and only that hash enters the transaction digest, so
// the raw secret is never part of transmitted material.
type Signer struct {
	merchantID   string
	hashedSecret string
}

// NewSigner creates a signer for the given merchant credentials
func NewSigner(merchantID, merchantSecret string) *Signer {
	return &Signer{
		merchantID:   merchantID,
		hashedSecret: upperMD5(merchantSecret),
	}
}

// MerchantID returns the configured merchant ID
func (s *Signer) MerchantID() string {
	return s.merchantID
}

// SignCheckout computes the hash for an outbound payment descriptor over
// merchantId, orderId, amount and currency
func (s *Signer) SignCheckout(orderID, amount, currency string) string {
	return upperMD5(s.merchantID + orderID + amount + currency + s.hashedSecret)
}

// VerifyNotification recomputes the expected signature over the notification
// fields, including the status code, and compares it to the supplied one.
// The comparison is constant-time.
func (s *Signer) VerifyNotification(n *entities.PaymentNotification) error {
	expected := upperMD5(
		n.MerchantID + n.OrderID + n.Amount + n.Currency + strconv.Itoa(n.StatusCode) + s.hashedSecret,
	)
	supplied := strings.ToUpper(strings.TrimSpace(n.Signature))
	if !hmac.Equal([]byte(expected), []byte(supplied)) {
		return apperrors.NewIntegrityError("payment notification signature mismatch")
	}
	return nil
}

// TargetStatus maps a gateway status code to the payment status it settles.
// Unrecognized codes, including the transient pending code, yield a
// validation error so callers can discard the notification.
func TargetStatus(code int) (entities.PaymentStatus, error) {
	switch code {
	case entities.GatewayStatusSuccess:
		return entities.PaymentStatusCompleted, nil
	case entities.GatewayStatusCancelled:
		return entities.PaymentStatusCancelled, nil
	case entities.GatewayStatusFailed:
		return entities.PaymentStatusFailed, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown gateway status code %d", code))
}

// FormatAmount renders an amount the way the gateway signs it
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
