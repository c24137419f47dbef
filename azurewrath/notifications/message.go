package notifications

import (
	"fmt"
	"strings"

	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
	"github.com/dustin/go-humanize"
)

// direction picks wording from the numeric comparison, never from sign
// metadata carried alongside the values.
func direction(oldValue, newValue int64) string {
	if newValue > oldValue {
		return "increased"
	}
	return "decreased"
}

// composeAlert builds the combined human-readable message plus the alert
// type and summary delta for one changed item. When both axes moved, the
// RAP axis wins the summary slot.
func composeAlert(r *tracker.Result) (alertType, message string, oldValue, newValue *int64) {
	var parts []string

	if r.RAPChanged && r.OldRAP != nil {
		parts = append(parts, fmt.Sprintf("RAP %s from %s to %s",
			direction(*r.OldRAP, r.RAP),
			humanize.Comma(*r.OldRAP),
			humanize.Comma(r.RAP)))
	}

	if r.PriceChanged && r.OldPrice != nil && r.Price != nil {
		parts = append(parts, fmt.Sprintf("price %s from %s to %s",
			direction(*r.OldPrice, *r.Price),
			humanize.Comma(*r.OldPrice),
			humanize.Comma(*r.Price)))
	}

	switch {
	case r.RAPChanged && r.PriceChanged:
		alertType = models.NotificationPriceAndRAPChange
	case r.RAPChanged:
		alertType = models.NotificationRAPChange
	default:
		alertType = models.NotificationPriceChange
	}

	if r.RAPChanged {
		oldValue = r.OldRAP
		rap := r.RAP
		newValue = &rap
	} else {
		oldValue = r.OldPrice
		newValue = r.Price
	}

	message = fmt.Sprintf("%s: %s", r.Name, strings.Join(parts, ", "))
	return alertType, message, oldValue, newValue
}

// summaryBody is the per-user rollup used when one user accumulated
// several alerts in a single cycle.
func summaryBody(count int) string {
	return fmt.Sprintf("%d items on your watchlist have changed", count)
}
