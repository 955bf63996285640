// Package task contains the endpoints of the coursework listings
package task

import (
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	c.JSON(http.StatusOK, gin.H{
		"tugas":     d.Tasks.All(),
		"requestID": requestID,
	})
}

func ByCategory(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	c.JSON(http.StatusOK, gin.H{
		"tugas":     d.Tasks.ByCategory(c.Param("category")),
		"requestID": requestID,
	})
}

func Add(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.AddTaskRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.Check(data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	t := model.Task{
		Category:    data.Category,
		Deadline:    data.Deadline,
		Title:       data.Title,
		Description: data.Description,
	}

	if err := d.Tasks.Add(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to add task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Task added",
		"tugas":     t,
		"requestID": requestID,
	})
}
