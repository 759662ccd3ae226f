package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flowscout/models"
	"github.com/use-agent/flowscout/render"
)

// TableRequest is a SearchRequest plus the output format.
type TableRequest struct {
	models.SearchRequest

	// Format is "html" (default) or "markdown".
	Format string `form:"format" binding:"omitempty,oneof=html markdown"`
}

// Table returns a handler for GET /api/v1/table: one search page rendered
// for quick eyeballing.
func Table(s Searcher, r *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TableRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewSearchError(models.ErrCodeBadParams, "invalid query parameters", err))
			return
		}

		resp, err := s.Search(c.Request.Context(), req.SearchRequest)
		if err != nil {
			respondError(c, err)
			return
		}

		page := render.Page{
			Target: req.Target,
			Laser:  req.Laser,
			Total:  resp.Total,
			Limit:  resp.Limit,
			Offset: resp.Offset,
			Rows:   resp.Rows,
		}
		if req.Format == "markdown" {
			out, err := r.Markdown(page)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(out))
			return
		}

		out, err := r.HTML(page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
	}
}
