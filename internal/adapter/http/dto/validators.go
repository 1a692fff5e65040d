package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	ethAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("eth_addr", validateEthAddr)
		_ = v.RegisterValidation("tx_hash", validateTxHash)
	}
}

// validateEthAddr accepts a 20-byte hex address with 0x prefix, any casing.
// Checksum casing is not enforced; addresses are lower-cased downstream.
func validateEthAddr(fl validator.FieldLevel) bool {
	return ethAddrRe.MatchString(fl.Field().String())
}

// validateTxHash accepts a 32-byte hex transaction hash with 0x prefix.
func validateTxHash(fl validator.FieldLevel) bool {
	return txHashRe.MatchString(fl.Field().String())
}
