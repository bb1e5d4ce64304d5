package refdata

import (
	"context"
	"fmt"
	"net/url"

	"carebook/models"
	"carebook/services/upstream"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DegradedWarning is surfaced (transiently) whenever a list fell back to the
// offline dataset.
const DegradedWarning = "live data is unavailable, showing offline data"

// Service fetches reference lists scoped to the session's upstream choices,
// degrading to static fallback data when the backend is unreachable.
type Service interface {
	Options(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, category models.Category) (models.OptionList, error)
	SlotAvailable(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, slotID string) bool
	NextAvailability(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, providers []models.ReferenceItem) map[string]models.ReferenceItem
}

// DefaultService implements Service over the upstream client. A singleflight
// group guarantees at most one outstanding fetch per key.
type DefaultService struct {
	Client *upstream.Client
	Logger *zap.Logger

	group singleflight.Group
}

// NewService builds the default reference-data service.
func NewService(client *upstream.Client, logger *zap.Logger) *DefaultService {
	return &DefaultService{Client: client, Logger: logger}
}

// KeyFor builds the fetch parameters for a category from the upstream ids
// chosen so far. ok is false while a required upstream id is missing. Slots
// always use the narrowest key available.
func KeyFor(flow *models.FlowConfig, category models.Category, sel *models.SelectionState) (url.Values, bool) {
	params := url.Values{}
	switch category {
	case models.CategoryServices:
		return params, true
	case models.CategoryCities:
		if sel.ServiceID != "" {
			params.Set("service_id", sel.ServiceID)
		}
		return params, true
	case models.CategoryProviders:
		if sel.CityID == "" {
			return nil, false
		}
		params.Set("city_id", sel.CityID)
		if sel.ServiceID != "" {
			params.Set("service_id", sel.ServiceID)
		}
		return params, true
	case models.CategorySlots:
		if sel.ProviderID == "" || sel.CityID == "" {
			return nil, false
		}
		params.Set("provider_id", sel.ProviderID)
		params.Set("city_id", sel.CityID)
		if sel.ServiceID != "" {
			params.Set("service_id", sel.ServiceID)
		}
		return params, true
	}
	return nil, false
}

// fetchKey is the singleflight key: flow, category and the encoded params.
func fetchKey(flow string, category models.Category, params url.Values) string {
	return fmt.Sprintf("%s|%s|%s", flow, category, params.Encode())
}

// Options fetches the list for a category. Fetch failures of any kind
// (network, non-2xx, non-array payload) degrade to the fallback dataset and
// set the list's fallback flag; an empty-but-valid response stays empty.
func (s *DefaultService) Options(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, category models.Category) (models.OptionList, error) {
	params, ok := KeyFor(flow, category, &sess.Selection)
	if !ok {
		return models.OptionList{}, fmt.Errorf("upstream ids for %s are not selected yet", category)
	}

	key := fetchKey(flow.Name, category, params)
	result, err, _ := s.group.Do(key, func() (any, error) {
		body, apiErr := s.Client.GetList(ctx, flow.Endpoints[category], params)
		if apiErr != nil {
			return nil, apiErr
		}
		items, err := NormalizeList(category, body)
		if err != nil {
			return nil, err
		}
		return items, nil
	})

	if err != nil {
		s.Logger.Warn("reference fetch degraded to fallback data",
			zap.String("flow", flow.Name),
			zap.String("category", string(category)),
			zap.Error(err))
		return models.OptionList{
			Category: category,
			Items:    Fallback(flow.Name, category),
			Fallback: true,
			Warning:  DegradedWarning,
		}, nil
	}

	return models.OptionList{
		Category: category,
		Items:    result.([]models.ReferenceItem),
	}, nil
}

// SlotAvailable re-fetches the slot list for the session's current key and
// confirms the chosen slot is still present and bookable. When the recheck
// itself degrades, the submission proceeds rather than hard-failing.
func (s *DefaultService) SlotAvailable(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, slotID string) bool {
	list, err := s.Options(ctx, flow, sess, models.CategorySlots)
	if err != nil || list.Fallback {
		return true
	}
	for _, slot := range list.Items {
		if slot.ID == slotID {
			return slot.Available
		}
	}
	return false
}

// NextAvailability fetches the first open slot per provider so the provider
// step can show "next available" hints. Fetches run as one bounded batch with
// shared cancellation; a failed batch just yields no hints.
func (s *DefaultService) NextAvailability(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, providers []models.ReferenceItem) map[string]models.ReferenceItem {
	type hint struct {
		providerID string
		slot       models.ReferenceItem
		found      bool
	}

	results, err := upstream.Batch(ctx, providers, func(ctx context.Context, p models.ReferenceItem) (hint, error) {
		params := url.Values{}
		params.Set("provider_id", p.ID)
		if sess.Selection.CityID != "" {
			params.Set("city_id", sess.Selection.CityID)
		}
		body, apiErr := s.Client.GetList(ctx, flow.Endpoints[models.CategorySlots], params)
		if apiErr != nil {
			return hint{}, apiErr
		}
		slots, err := NormalizeList(models.CategorySlots, body)
		if err != nil {
			return hint{}, err
		}
		for _, slot := range slots {
			if slot.Available {
				return hint{providerID: p.ID, slot: slot, found: true}, nil
			}
		}
		return hint{providerID: p.ID}, nil
	})
	if err != nil {
		s.Logger.Debug("provider availability batch failed", zap.Error(err))
		return nil
	}

	hints := make(map[string]models.ReferenceItem, len(results))
	for _, r := range results {
		if r.found {
			hints[r.providerID] = r.slot
		}
	}
	return hints
}
