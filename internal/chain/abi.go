package chain

import (
	"bytes"
	"embed"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/*.json
var abiFiles embed.FS

var (
	ErrUnknownVariant  = errors.New("unknown contract abi variant")
	ErrInvalidAddress  = errors.New("invalid contract address")
	ErrUnknownFunction = errors.New("function not in contract abi")
)

var variantFiles = map[Variant]string{
	VariantBasic: "abi/guess.json",
	VariantClaim: "abi/guess_claim.json",
}

// Contract is a deployed game contract together with the ABI it was deployed with
type Contract struct {
	Address common.Address
	ABI     abi.ABI
	Variant Variant
}

// ParseVariant validates a variant name from configuration
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if _, ok := variantFiles[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	return v, nil
}

// LoadContract binds an address to one of the embedded ABI variants
func LoadContract(address string, variant Variant) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	file, ok := variantFiles[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	raw, err := abiFiles.ReadFile(file)
	if err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse abi %s: %w", variant, err)
	}

	return &Contract{
		Address: common.HexToAddress(address),
		ABI:     parsed,
		Variant: variant,
	}, nil
}

// Has reports whether the contract ABI exposes the function
func (c *Contract) Has(function string) bool {
	_, ok := c.ABI.Methods[function]
	return ok
}

func (c *Contract) method(function string) (abi.Method, error) {
	m, ok := c.ABI.Methods[function]
	if !ok {
		return abi.Method{}, fmt.Errorf("%w: %s (%s)", ErrUnknownFunction, function, c.Variant)
	}
	return m, nil
}
