package usecase

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

// Deps are the collaborators shared by every engine.
type Deps struct {
	Store  repository.ProfileStore
	Logger logrus.FieldLogger
	Retry  RetryPolicy
	Clock  func() time.Time
	NewID  func() string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Logger = l
	}
	if d.Retry.MaxAttempts == 0 {
		d.Retry = DefaultRetryPolicy()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.NewString() }
	}
	return d
}
