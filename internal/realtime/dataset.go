package realtime

import (
	"fmt"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
)

// Dataset is one user's record lists, kept current by applying changes.
// It is a value; ApplyEnvelope returns a new Dataset.
type Dataset struct {
	UserID      string
	Tasks       []model.Task
	Meals       []model.Meal
	Water       []model.WaterLog
	Events      []model.AnalyticsEvent
	Preferences *model.UserPreferences
}

// FromSnapshot copies a snapshot's lists into a Dataset.
func FromSnapshot(s *model.Snapshot) Dataset {
	if s == nil {
		return Dataset{}
	}
	return Dataset{
		UserID:      s.UserID,
		Tasks:       s.Tasks,
		Meals:       s.Meals,
		Water:       s.Water,
		Events:      s.Events,
		Preferences: s.Preferences,
	}
}

// Snapshot returns the dataset as a model.Snapshot.
func (d Dataset) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		UserID:      d.UserID,
		Tasks:       d.Tasks,
		Meals:       d.Meals,
		Water:       d.Water,
		Events:      d.Events,
		Preferences: d.Preferences,
	}
}

// ApplyEnvelope decodes e for its table and applies it. Changes owned by a
// different user are ignored and reported with applied=false.
func (d Dataset) ApplyEnvelope(e Envelope) (out Dataset, applied bool, err error) {
	if owner := e.UserID(); d.UserID != "" && owner != "" && owner != d.UserID {
		return d, false, nil
	}

	out = d
	switch e.Table {
	case model.TableTasks:
		out.Tasks, err = applyTable(d.Tasks, e, backend.DecodeTask)
	case model.TableMeals:
		out.Meals, err = applyTable(d.Meals, e, backend.DecodeMeal)
	case model.TableWaterLogs:
		out.Water, err = applyTable(d.Water, e, backend.DecodeWaterLog)
	case model.TableEvents:
		out.Events, err = applyTable(d.Events, e, backend.DecodeEvent)
	case model.TablePreferences:
		out.Preferences, err = applyPreferences(e)
	default:
		return d, false, fmt.Errorf("%w: %q", ErrUnknownTable, e.Table)
	}
	if err != nil {
		return d, false, err
	}
	return out, true, nil
}

func applyTable[T Keyed](list []T, e Envelope, decode func([]byte) (T, error)) ([]T, error) {
	c, err := DecodeChange(e, decode)
	if err != nil {
		return nil, err
	}
	return Apply(list, c)
}

func applyPreferences(e Envelope) (*model.UserPreferences, error) {
	if e.Kind == Delete {
		return nil, nil
	}
	p, err := backend.DecodePreferences(e.Record)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
