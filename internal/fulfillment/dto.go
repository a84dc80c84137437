package fulfillment

import (
	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
)

// OrderFilters narrows order list queries.
type OrderFilters struct {
	OperatorID *uuid.UUID
	ZenStatus  *enums.ZenStatus
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
