package licensekey

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	// Product is the product line identifier stamped into every key.
	Product = "carvd-studio"

	TypeStandard = "standard"
)

// Claims is the payload of a signed license key. A key without an
// expiry claim is perpetual: valid forever once its signature checks out.
type Claims struct {
	Email       string `json:"email"`
	OrderID     string `json:"orderId"`
	Product     string `json:"product"`
	LicenseType string `json:"licenseType"`
	jwt.RegisteredClaims
}

// IsPerpetual reports whether the key carries no expiry claim.
func (c *Claims) IsPerpetual() bool {
	return c.ExpiresAt == nil
}
