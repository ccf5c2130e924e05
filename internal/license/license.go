// Package license answers whether an annotation feature class may be used.
package license

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// Feature is an annotation feature class.
type Feature string

const (
	FeatureHighlight      Feature = "highlight"
	FeatureDraw           Feature = "draw"
	FeatureShapes         Feature = "shapes"
	FeatureNotes          Feature = "notes"
	FeatureTextDecoration Feature = "text-decoration"
	// FeatureText and FeatureSignature are available to everyone.
	FeatureText      Feature = "text"
	FeatureSignature Feature = "signature"
)

// Premium lists the features that require an active license.
var Premium = []Feature{FeatureHighlight, FeatureDraw, FeatureShapes, FeatureNotes, FeatureTextDecoration}

// IsPremium reports whether f needs a license.
func IsPremium(f Feature) bool {
	for _, p := range Premium {
		if p == f {
			return true
		}
	}
	return false
}

var (
	// ErrNotPermitted is returned when a premium feature is used without a license.
	ErrNotPermitted = errors.New("feature requires a premium license")
	// ErrInvalidKey reports a malformed key or a token with a bad signature.
	ErrInvalidKey = errors.New("invalid license key")
	// ErrExpired reports a token past its expiry.
	ErrExpired = errors.New("license key expired")
	// ErrInvalidProduct reports a token issued for another product.
	ErrInvalidProduct = errors.New("invalid product")
)

// Gate is the capability query consulted before a tool is armed.
type Gate interface {
	Permitted(f Feature) bool
}

// Static is a gate with a fixed answer for premium features.
type Static bool

// AllowAll permits every feature.
const AllowAll = Static(true)

// FreeOnly permits only non-premium features.
const FreeOnly = Static(false)

func (s Static) Permitted(f Feature) bool { return bool(s) || !IsPremium(f) }

// Product is the product claim carried by license tokens.
const Product = "quickmark_pdf_premium"

var keyPattern = regexp.MustCompile(`^QMPDF-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}$`)

// ValidKeyFormat reports whether key looks like a QMPDF license key.
func ValidKeyFormat(key string) bool { return keyPattern.MatchString(key) }

const keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateKey returns a new random key in QMPDF-XXXXX-XXXXX-XXXXX form.
func GenerateKey() (string, error) {
	parts := []string{"QMPDF"}
	for i := 0; i < 3; i++ {
		var b strings.Builder
		for j := 0; j < 5; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generate key: %w", err)
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "-"), nil
}

// Claims are the fields of a verified license token.
type Claims struct {
	Email        string
	PurchaseDate time.Time
	Product      string
}

// IssueToken signs an HS256 license token for email.
func IssueToken(secret []byte, email string, purchased time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email":        email,
		"product":      Product,
		"purchaseDate": purchased.UTC().Format(time.RFC3339),
		"iat":          purchased.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = purchased.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken checks the signature, expiry and product claim of token.
func VerifyToken(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidKey
	}
	c := &Claims{}
	c.Product, _ = mc["product"].(string)
	if c.Product != Product {
		return nil, ErrInvalidProduct
	}
	c.Email, _ = mc["email"].(string)
	if s, ok := mc["purchaseDate"].(string); ok {
		c.PurchaseDate, _ = time.Parse(time.RFC3339, s)
	}
	return c, nil
}
