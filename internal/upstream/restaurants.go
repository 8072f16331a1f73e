package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
)

const stageRestaurantDiscovery = "restaurant_discovery"

// FetchRestaurants lists the restaurants delivering at slot on date. An empty
// or null body yields an empty slice.
func (c *Client) FetchRestaurants(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot) ([]Restaurant, error) {
	params := url.Values{}
	params.Set("day", date.String())
	params.Set("hour", slot.String())
	params.Set("delivery_place_id", strconv.Itoa(c.deliveryPlaceID))

	body, err := c.get(ctx, stageRestaurantDiscovery, restaurantsPath, params)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var restaurants []Restaurant
	if err := json.Unmarshal(trimmed, &restaurants); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageRestaurantDiscovery, "decode", "restaurant listing is not a JSON array", err)
	}

	logging.WithContext(ctx, c.logger).Debug("restaurants fetched",
		logging.String("target_date", date.String()),
		logging.String("slot", slot.String()),
		logging.Int("restaurant_count", len(restaurants)),
	)
	return restaurants, nil
}
