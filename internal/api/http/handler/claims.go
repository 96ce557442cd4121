package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/artlinkhq/artlink_backend/internal/model"
	pasetotoken "github.com/artlinkhq/artlink_backend/pkg/paseto"
)

// actorFromFiber pulls the authenticated user and their platform role out of
// the verified token claims.
func actorFromFiber(c fiber.Ctx) (uuid.UUID, model.Role, bool) {
	claims, okc := pasetotoken.ClaimsFromFiber(c)
	if !okc {
		return uuid.Nil, "", false
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return uuid.Nil, "", false
	}
	return claims.UserID, role, true
}
