package handlers

import (
	"github.com/paylater-gateway/internal/constants"
	"github.com/paylater-gateway/internal/lender"
	"github.com/paylater-gateway/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler serves both the payment-protocol surface and the gateway's own
// settings endpoints.
type Handler struct {
	*provider.Container
}

// New creates the handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// lenderCredentials pulls the merchant's lender key pair from the protocol
// headers. The platform forwards them on every call; there is no session.
func lenderCredentials(c *gin.Context, sandbox bool) lender.Credentials {
	return lender.Credentials{
		PublicKey:  c.GetHeader(constants.HeaderAppKey),
		PrivateKey: c.GetHeader(constants.HeaderAppToken),
		Sandbox:    sandbox,
	}
}
