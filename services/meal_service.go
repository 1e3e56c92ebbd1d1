package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nourish/api"
	"nourish/models"
)

// maxParallelEntries bounds the entry creations one LogScaled call keeps in
// flight.
const maxParallelEntries = 4

type MealService struct {
	client  *api.Client
	bus     *RefreshBus
	entries *EntryService
}

func NewMealService(client *api.Client, bus *RefreshBus, entries *EntryService) *MealService {
	return &MealService{client: client, bus: bus, entries: entries}
}

type mealEnvelope struct {
	Meal models.SavedMeal `json:"meal"`
}

func (s *MealService) List(ctx context.Context) ([]models.SavedMeal, error) {
	var out struct {
		Meals []models.SavedMeal `json:"meals"`
	}
	if err := s.client.Get(ctx, "/meals", nil, &out); err != nil {
		return nil, err
	}
	return out.Meals, nil
}

// Find returns one saved meal. The backend has no single-meal read, so it
// is picked from the list.
func (s *MealService) Find(ctx context.Context, id int64) (*models.SavedMeal, error) {
	meals, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range meals {
		if meals[i].ID == id {
			return &meals[i], nil
		}
	}
	return nil, &api.Error{Kind: api.KindNotFound, Message: "Meal not found"}
}

func (s *MealService) Create(ctx context.Context, req models.SavedMealRequest) (*models.SavedMeal, error) {
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	var out mealEnvelope
	if err := s.client.Post(ctx, "/meals", req, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicMeals, Action: ActionCreated, ID: out.Meal.ID})
	return &out.Meal, nil
}

func (s *MealService) Update(ctx context.Context, id int64, req models.SavedMealRequest) (*models.SavedMeal, error) {
	if errs := req.Validate(); !errs.Empty() {
		return nil, api.ValidationError(errs)
	}
	var out mealEnvelope
	if err := s.client.Put(ctx, fmt.Sprintf("/meals/%d", id), req, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicMeals, Action: ActionUpdated, ID: id})
	return &out.Meal, nil
}

func (s *MealService) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/meals/%d", id), nil); err != nil {
		return err
	}
	s.bus.Publish(Event{Topic: TopicMeals, Action: ActionDeleted, ID: id})
	return nil
}

// AddToDay asks the backend to log every line of a saved meal. scale is a
// portion factor; zero means the whole meal.
func (s *MealService) AddToDay(ctx context.Context, id int64, date string, meal models.MealType, scale float64) ([]models.Entry, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	if !meal.Valid() {
		errs := models.FieldErrors{}
		errs.Add("meal_type", "Must be one of: breakfast, lunch, dinner, snacks.")
		return nil, api.ValidationError(errs)
	}
	if scale < 0 {
		errs := models.FieldErrors{}
		errs.Add("scale", "Portion must be greater than 0")
		return nil, api.ValidationError(errs)
	}
	var out struct {
		Entries []models.Entry `json:"entries"`
	}
	body := models.AddMealRequest{Date: date, MealType: meal, Scale: scale}
	if err := s.client.Post(ctx, fmt.Sprintf("/meals/%d/add", id), body, &out); err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Topic: TopicEntries, Action: ActionCreated, Date: date})
	return out.Entries, nil
}

// LogScaled logs a portion of a saved meal by creating one entry per line
// with the quantity scaled by pct/100. Entries are created concurrently;
// the first failure cancels the rest and is returned with the entries that
// were created before it.
func (s *MealService) LogScaled(ctx context.Context, meal models.SavedMeal, pct float64, date string, mealType models.MealType) ([]models.Entry, error) {
	factor, err := models.PortionFactor(pct)
	if err != nil {
		errs := models.FieldErrors{}
		errs.Add("portion", err.Error())
		return nil, api.ValidationError(errs)
	}
	reqs := meal.Scale(factor).Entries(date, mealType)
	for i, r := range reqs {
		if errs := r.Validate(); !errs.Empty() {
			fe := models.FieldErrors{}
			for _, f := range errs.Fields() {
				for _, m := range errs[f] {
					fe.Add(fmt.Sprintf("foods.%d.%s", i, f), m)
				}
			}
			return nil, api.ValidationError(fe)
		}
	}

	created := make([]*models.Entry, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEntries)
	for i, r := range reqs {
		g.Go(func() error {
			e, err := s.entries.Create(gctx, r)
			if err != nil {
				return err
			}
			created[i] = e
			return nil
		})
	}
	err = g.Wait()

	out := make([]models.Entry, 0, len(created))
	for _, e := range created {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, err
}

// SaveDayAsTemplate stores the foods logged for one meal slot of a day as a
// new saved meal.
func (s *MealService) SaveDayAsTemplate(ctx context.Context, date string, slot models.MealType, name, description string) (*models.SavedMeal, error) {
	day, err := s.entries.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	logged := day.Meal(slot)
	if len(logged) == 0 {
		errs := models.FieldErrors{}
		errs.Add("foods", fmt.Sprintf("No foods logged for %s on %s", slot, date))
		return nil, api.ValidationError(errs)
	}
	return s.Create(ctx, models.TemplateFromEntries(name, description, logged))
}
