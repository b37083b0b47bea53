// Package id generates tokens and identifiers.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	tokenLength   = 40
)

// APIToken creates a random alphanumeric API token.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func APIToken() (string, error) {
	tok, err := gonanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tok, nil
}

// MustAPIToken is like APIToken but panics if generation fails.
// Use this only in tooling where failure should crash the program.
func MustAPIToken() string {
	tok, err := APIToken()
	if err != nil {
		panic(fmt.Sprintf("failed to generate token: %v", err))
	}
	return tok
}

// DeliveryID returns a fresh identifier for an inbound webhook delivery
// that did not carry one.
func DeliveryID() string {
	return uuid.NewString()
}
