package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
)

const stageMenuDiscovery = "menu_discovery"

// ErrMissingID is returned by FetchMenu for restaurants without an identifier.
var ErrMissingID = errors.New("restaurant has no identifier")

// FetchMenu fetches the menu items of one restaurant for slot on date.
func (c *Client) FetchMenu(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot, restaurant Restaurant) (MenuRecord, error) {
	if !restaurant.HasID() {
		return MenuRecord{}, ErrMissingID
	}

	params := url.Values{}
	params.Set("delivery_place_id", strconv.Itoa(c.deliveryPlaceID))
	params.Set("day", date.String()+" "+slot.String())
	params.Set(menuFilterParam, restaurant.ID)

	body, err := c.get(ctx, stageMenuDiscovery, menuItemsPath, params)
	if err != nil {
		return MenuRecord{}, err
	}

	data := json.RawMessage(bytes.TrimSpace(body))
	if len(data) == 0 {
		data = json.RawMessage("null")
	} else if !json.Valid(data) {
		return MenuRecord{}, services.Wrap(services.ErrExternalTool, stageMenuDiscovery, "decode",
			"menu response for restaurant "+restaurant.ID+" is not JSON", nil)
	}
	return MenuRecord{
		RestaurantID:   restaurant.ID,
		RestaurantName: restaurant.Name,
		MenuData:       append(json.RawMessage(nil), data...),
	}, nil
}

// FetchMenus fetches menus for every restaurant that has an identifier, one
// request at a time. Restaurants without an identifier are skipped. The first
// failing request aborts the loop and no records are returned.
func (c *Client) FetchMenus(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot, restaurants []Restaurant) ([]MenuRecord, error) {
	if len(restaurants) == 0 {
		return nil, nil
	}
	logger := logging.WithContext(ctx, c.logger)

	menus := make([]MenuRecord, 0, len(restaurants))
	for _, restaurant := range restaurants {
		if !restaurant.HasID() {
			logger.Debug("restaurant skipped without identifier",
				logging.String("restaurant_name", restaurant.Name),
				logging.String(logging.FieldEventType, "restaurant_skipped"),
			)
			continue
		}
		menu, err := c.FetchMenu(ctx, date, slot, restaurant)
		if err != nil {
			return nil, err
		}
		menus = append(menus, menu)
	}
	return menus, nil
}
