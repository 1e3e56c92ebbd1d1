// Package services holds the resource verbs of the nutrition backend. Each
// service is a thin, stateless wrapper over api.Client: it validates what
// the forms validate, issues exactly one request per call (LogScaled and
// the DayService loaders issue one per line or day) and publishes a change
// event on the RefreshBus after every successful mutation.
package services

import (
	"go.uber.org/zap"

	"nourish/api"
)

// Services bundles every service over one client and bus.
type Services struct {
	Bus       *RefreshBus
	Auth      *AuthService
	Entries   *EntryService
	Foods     *FoodService
	Meals     *MealService
	Community *CommunityService
	Users     *UserService
	Days      *DayService
	Live      *LiveFeed
}

func New(client *api.Client, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	bus := NewRefreshBus(log)
	entries := NewEntryService(client, bus)
	return &Services{
		Bus:       bus,
		Auth:      NewAuthService(client, bus),
		Entries:   entries,
		Foods:     NewFoodService(client, bus),
		Meals:     NewMealService(client, bus, entries),
		Community: NewCommunityService(client, bus),
		Users:     NewUserService(client, bus),
		Days:      NewDayService(entries, log),
		Live:      NewLiveFeed(client, bus, log),
	}
}
