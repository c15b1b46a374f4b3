package http

import (
	"github.com/go-verify-api/internal/application/verification"
)

// Deps holds everything the router needs from the composition root.
type Deps struct {
	Verification verification.Service
}
