package http

import (
	"net/http"

	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/pkg/httpx"
	"github.com/lumehq/accountd/pkg/slogx"
)

type RolesHandler struct {
	RolesService *service.RolesService
}

// HandleList returns all roles.
//
//	@Summary		List roles
//	@Description	Returns the role taxonomy. Seeded automatically on an empty database.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Response{data=[]roleResponse}
//	@Failure		401	{object}	httpx.Response	"UNAUTHORIZED"
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RolesService.ListAll(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list roles failed", "error", err)
		httpx.WriteError(w, err)
		return
	}

	out := make([]roleResponse, len(roles))
	for i, role := range roles {
		out[i] = newRoleResponse(role)
	}
	httpx.WriteData(w, out)
}
