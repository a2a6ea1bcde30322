package repo

import (
	"context"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

type ProfileRepo struct {
	store store.Store
}

func NewProfileRepo(s store.Store) *ProfileRepo {
	return &ProfileRepo{store: s}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	doc, err := r.store.Get(ctx, model.ProfilePath(userID))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &model.Profile{
		UserID:      doc.ID,
		DeviceToken: stringField(doc.Data, model.FieldDeviceToken),
	}, nil
}

// ClearDeviceToken removes only the device_token field of the profile.
func (r *ProfileRepo) ClearDeviceToken(ctx context.Context, userID string) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	err := r.store.Update(ctx, model.ProfilePath(userID), []store.Update{
		{Field: model.FieldDeviceToken, Value: store.DeleteField},
	})
	return mapNotFound(err)
}
