package bids

import (
	"strings"

	"dormitory/models"
)

// InProcessOrder сравнивает заявки для очереди менеджера manager:
// назначенные ему, затем без менеджера, затем назначенные другим по логину.
func InProcessOrder(manager string) func(a, b models.Bid) int {
	rank := func(b *models.Bid) int {
		switch {
		case b.ManagedBy(manager):
			return 0
		case b.Manager == nil:
			return 1
		default:
			return 2
		}
	}
	return func(a, b models.Bid) int {
		ra, rb := rank(&a), rank(&b)
		if ra != rb {
			return ra - rb
		}
		if ra == 2 {
			return strings.Compare(*a.Manager, *b.Manager)
		}
		return 0
	}
}
