// Package reminder contains the endpoints of a user's reminders. Every
// route requires a session and only ever touches the caller's own reminders.
package reminder

import (
	"errors"
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/pkg/middleware"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	sess := middleware.SessionFrom(c)

	reminders, err := d.Reminders.ListReminders(c.Request.Context(), sess.AccountID)
	if err != nil {
		internalError(c, requestID, "Failed to list reminders", err)
		return
	}

	views := make([]model.ReminderView, 0, len(reminders))
	for i := range reminders {
		views = append(views, reminders[i].View())
	}

	c.JSON(http.StatusOK, gin.H{
		"reminders": views,
		"requestID": requestID,
	})
}

func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	sess := middleware.SessionFrom(c)

	r, err := d.Reminders.FindReminder(c.Request.Context(), sess.AccountID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(c, requestID)
			return
		}

		internalError(c, requestID, "Failed to fetch reminder", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reminder":  r.View(),
		"requestID": requestID,
	})
}

func Create(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	sess := middleware.SessionFrom(c)

	r, ok := bindReminder(c, requestID)
	if !ok {
		return
	}

	id, err := gonanoid.Generate(charset, 16)
	if err != nil {
		internalError(c, requestID, "Failed to generate reminder ID", err)
		return
	}

	r.ID = id
	r.OwnerID = sess.AccountID

	if err := d.Reminders.CreateReminder(c.Request.Context(), r); err != nil {
		internalError(c, requestID, "Failed to create reminder", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Reminder added",
		"reminder":  r.View(),
		"requestID": requestID,
	})
}

func Update(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	sess := middleware.SessionFrom(c)

	r, ok := bindReminder(c, requestID)
	if !ok {
		return
	}

	r.ID = c.Param("id")
	r.OwnerID = sess.AccountID

	if err := d.Reminders.UpdateReminder(c.Request.Context(), r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(c, requestID)
			return
		}

		internalError(c, requestID, "Failed to update reminder", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Reminder updated",
		"reminder":  r.View(),
		"requestID": requestID,
	})
}

func Delete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	sess := middleware.SessionFrom(c)

	if err := d.Reminders.DeleteReminder(c.Request.Context(), sess.AccountID, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(c, requestID)
			return
		}

		internalError(c, requestID, "Failed to delete reminder", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Reminder deleted",
		"requestID": requestID,
	})
}

func bindReminder(c *gin.Context, requestID string) (*model.Reminder, bool) {
	var data validators.ReminderRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return nil, false
	}

	if err := validators.Check(data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return nil, false
	}

	t, err := validators.ParseReminderTime(data.Time)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return nil, false
	}

	return &model.Reminder{
		Title:       data.Title,
		Description: data.Description,
		Major:       data.Major,
		Time:        t,
	}, true
}

func notFound(c *gin.Context, requestID string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":     "Reminder not found",
		"requestID": requestID,
	})
}

func internalError(c *gin.Context, requestID, msg string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
}
