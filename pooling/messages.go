package pooling

import (
	"strings"

	"github.com/warp/pool-engine/generic"
)

// Outcome kinds for pool workflows. Kinds without a Message surface the
// outcome's Detail (an overlap description, a composed sentence) instead.
var (
	KindDataInserted   = generic.Kind{Key: "DATA_INSERT_SUCCESSFUL", Message: "Data inserted successfully."}
	KindDataUpdated    = generic.Kind{Key: "DATA_UPDATE_SUCCESSFUL", Message: "Data updated successfully."}
	KindDeleted        = generic.Kind{Key: "DELETE_SUCCESS_MESSAGE", Message: "Deleted successfully."}
	KindDatesOverlap   = generic.Kind{Key: "POOL_DATES_OVERLAPS"}
	KindDateGaps       = generic.Kind{Key: "POOL_DATE_GAPS"}
	KindNothingDeleted = generic.Kind{Key: "NO_SERVICE_POOLS_TO_DELETE", Message: "No service pools to delete"}
	KindPoolInUse      = generic.Kind{Key: "SERVICE_POOL_IN_USE"}
	KindNoRecords      = generic.Kind{Key: "NO_RECORDS_FOUND", Message: "No Records Found"}
	KindBadCapacity    = generic.Kind{Key: "CAPACITY_VALIDATION", Message: "Capacity cannot be negative"}

	KindReduceDate = generic.Kind{
		Key:     "REDUCE_DATE_MESSAGE",
		Message: "There are bookings made during the period you have excluded from this date range using this service pool. Do you want to continue?",
	}
	KindReduceCapacity = generic.Kind{
		Key:     "REDUCE_CAPACITY_MESSAGE",
		Message: "Bookings already exceed the new capacity limit. Proceed with reducing capacity?",
	}
	KindReducedDateCapacity = generic.Kind{
		Key:     "REDUCED_DATE_CAPACITY_MESSAGE",
		Message: "Bookings exceed the new capacity for the excluded dates. Shall we proceed with reducing the date range and capacity?",
	}
)

// poolInUseMessage names the services still linked to a pool:
// "The Gym pool is used for Yoga and Spin services. You must remove it from
// each service before deleting this pool."
func poolInUseMessage(poolName string, services []string) string {
	var list, article string
	switch len(services) {
	case 1:
		list, article = services[0]+" service", "that"
	default:
		list = strings.Join(services[:len(services)-1], ", ") + " and " + services[len(services)-1] + " services"
		article = "each"
	}
	return "The " + poolName + " pool is used for " + list +
		". You must remove it from " + article + " service before deleting this pool."
}
