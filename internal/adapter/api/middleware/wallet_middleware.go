package middleware

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"

	"novaland/internal/domain/entity"
)

// LoginMessagePrefix is the text the client signs to prove wallet ownership.
// The signed message is the prefix followed by the lowercased address.
const LoginMessagePrefix = "novaland:login:"

// WalletMiddleware authenticates requests by verifying a personal_sign
// signature over the login message. The recovered address becomes the
// caller identity; there are no accounts or sessions server side.
type WalletMiddleware struct{}

func NewWalletMiddleware() *WalletMiddleware {
	return &WalletMiddleware{}
}

// Authenticate expects: Authorization: Wallet <address>:<hex signature>
func (m *WalletMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Wallet" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		credential := strings.SplitN(parts[1], ":", 2)
		if len(credential) != 2 {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid wallet credential")
		}

		wallet, err := VerifyWalletSignature(credential[0], credential[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or forged signature")
		}

		c.Set("wallet", wallet)
		return next(c)
	}
}

// VerifyWalletSignature checks that sigHex is a valid personal_sign signature
// by claimed over the login message, and returns the normalized address.
// Shared with the WebSocket handshake, which carries credentials in query
// parameters instead of a header.
func VerifyWalletSignature(claimed, sigHex string) (string, error) {
	claimed = entity.NormalizeWallet(claimed)

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil || len(sig) != 65 {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Malformed signature")
	}
	// Wallets produce V in {27, 28}; go-ethereum wants {0, 1}.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	digest := accounts.TextHash([]byte(LoginMessagePrefix + claimed))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}

	recovered := entity.NormalizeWallet(crypto.PubkeyToAddress(*pub).Hex())
	if recovered != claimed {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Signature does not match address")
	}
	return recovered, nil
}
