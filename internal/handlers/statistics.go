package handlers

import (
	"github.com/gin-gonic/gin"

	"chaplog/internal/response"
	"chaplog/internal/service"
)

type activitiesQuery struct {
	Limit int `form:"limit"`
}

func (h HandlerSet) Summary(c *gin.Context) {
	s, err := h.svc.Statistics.Summary(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, summaryResponse(s), "")
}

func (h HandlerSet) Monthly(c *gin.Context) {
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	stats, err := h.svc.Statistics.Monthly(c.Request.Context(), currentUser(c).ID, year)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toMonthly(stats), "")
}

func (h HandlerSet) Genres(c *gin.Context) {
	stats, err := h.svc.Statistics.Genres(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toGenres(stats), "")
}

func (h HandlerSet) Activities(c *gin.Context) {
	var q activitiesQuery
	if !bindQuery(c, &q) {
		return
	}
	if _, present := c.GetQuery("limit"); present && q.Limit == 0 {
		h.fail(c, service.ErrInvalidLimit)
		return
	}

	activities, err := h.svc.Statistics.Activities(c.Request.Context(), currentUser(c).ID, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivity(a))
	}
	response.OK(c, out, "")
}

func (h HandlerSet) Heatmap(c *gin.Context) {
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	month, ok := intParam(c, "month")
	if !ok {
		return
	}
	heatmap, err := h.svc.Statistics.Heatmap(c.Request.Context(), currentUser(c).ID, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toHeatmap(heatmap), "")
}
