package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/api/middleware"
	internalorders "github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// actorFromRequest reads the actor seeded by the auth middleware.
func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "authenticated actor required")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "authenticated actor required")
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}
