package services

import (
	"context"
	"fmt"
	"net/url"

	"nourish/api"
	"nourish/models"
)

type EntryService struct {
	client *api.Client
	bus    *RefreshBus
}

func NewEntryService(client *api.Client, bus *RefreshBus) *EntryService {
	return &EntryService{client: client, bus: bus}
}

type entryEnvelope struct {
	Entry models.Entry `json:"entry"`
}

// Create logs a food. Exactly one of FoodID and CustomFoodID must be set.
func (s *EntryService) Create(ctx context.Context, req models.EntryRequest) (*models.Entry, error) {
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	var out entryEnvelope
	if err := s.client.Post(ctx, "/entries", req, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicEntries, Action: ActionCreated, ID: out.Entry.ID, Date: req.Date})
	return &out.Entry, nil
}

// Update changes the quantity or meal slot of an entry.
func (s *EntryService) Update(ctx context.Context, id int64, upd models.EntryUpdate) (*models.Entry, error) {
	if errs := upd.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	var out entryEnvelope
	if err := s.client.Put(ctx, fmt.Sprintf("/entries/%d", id), upd, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicEntries, Action: ActionUpdated, ID: id, Date: out.Entry.Date})
	return &out.Entry, nil
}

func (s *EntryService) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/entries/%d", id), nil); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicEntries, Action: ActionDeleted, ID: id})
	return nil
}

// ListByDate returns the day's entries grouped by meal slot. Every slot is
// present in the result, empty or not.
func (s *EntryService) ListByDate(ctx context.Context, date string) (models.DayEntries, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	out := models.DayEntries{}
	if err := s.client.Get(ctx, "/entries", url.Values{"date": {date}}, &out); err != nil {
		return nil, err
	}
	for _, t := range models.MealTypes {
		out[t] = out.Meal(t)
	}
	return out, nil
}

// DailySummary returns consumption against goals for one day.
func (s *EntryService) DailySummary(ctx context.Context, date string) (*models.DailySummary, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	var out models.DailySummary
	if err := s.client.Get(ctx, "/summary/"+date, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WeeklySummary returns the seven days starting at startDate.
func (s *EntryService) WeeklySummary(ctx context.Context, startDate string) (*models.WeeklySummary, error) {
	if err := checkDate(startDate); err != nil {
		return nil, err
	}
	var out models.WeeklySummary
	if err := s.client.Get(ctx, "/summary/week/"+startDate, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func checkDate(date string) error {
	if _, err := models.ParseDate(date); err != nil {
		errs := models.FieldErrors{}
		errs.Add("date", "Date must be in YYYY-MM-DD format")
		return api.ValidationError(errs)
	}
	return nil
}
