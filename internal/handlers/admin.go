package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"chaplog/internal/response"
)

type userListQuery struct {
	pageQuery
	SearchTerm string `form:"searchTerm" binding:"max=200"`
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	var q userListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.Admin.ListUsers(c.Request.Context(), strings.TrimSpace(q.SearchTerm), q.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, paged(page, toUser), "")
}

func (h HandlerSet) AdminCountUsers(c *gin.Context) {
	count, err := h.svc.Admin.CountUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, count, "")
}

func (h HandlerSet) AdminGetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toUser(user), "")
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Admin.DeleteUser(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil, "User deleted")
}
