package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/vanshpatelx/Opinex/internal/models"
)

// requestContext carries the New Relic transaction started by nrgin into the
// service layer.
func requestContext(c *gin.Context) context.Context {
	return newrelic.NewContext(c.Request.Context(), nrgin.Transaction(c))
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, NewValidationError("Invalid " + name)
	}
	return id, nil
}

// bindPage reads cursor and limit query parameters, defaulting the limit.
func bindPage(c *gin.Context) (models.Page, error) {
	page := models.Page{Limit: models.DefaultPageLimit}
	if err := c.ShouldBindQuery(&page); err != nil {
		return page, NewValidationError("Invalid pagination parameters")
	}
	return page, nil
}
