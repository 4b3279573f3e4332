package availability

import (
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/google/uuid"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func item(name string, qty int) models.Item {
	return models.Item{ID: uuid.New(), Name: name, Quantity: qty, IsActive: true}
}

func line(it models.Item, qty int) models.ReservationLine {
	id := it.ID
	return models.ReservationLine{ItemID: &id, ItemName: it.Name, Quantity: qty}
}

func reservation(pickup, ret string, lines ...models.ReservationLine) models.Reservation {
	res := models.Reservation{
		ID:                 uuid.New(),
		ClientName:         "client",
		Status:             enums.ReservationStatusOpen,
		AvailabilityStatus: enums.AvailabilityStatusOK,
		Lines:              lines,
	}
	if pickup != "" {
		res.PickupDate = day(pickup)
	}
	if ret != "" {
		res.ReturnDate = day(ret)
	}
	return res
}
