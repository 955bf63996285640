package internal

import (
	"time"

	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/internal/task"
)

// Deps is everything an HTTP handler may reach.
type Deps struct {
	Accounts  *account.Manager
	Reminders store.ReminderStore
	Tasks     *task.Catalogue

	// SecureCookies sets the Secure flag on every cookie the app writes.
	SecureCookies bool
	SessionTTL    time.Duration
}
