package database

import (
	"log"

	"restchain/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models. Actors and targets migrate before the tables
	// referencing them.
	err = db.AutoMigrate(
		&model.Actor{},
		&model.User{},
		&model.DefaultActor{},
		&model.Restaurant{},
		&model.RestaurantEmployeePosition{},
		&model.RestaurantEmployee{},

		&model.TaskType{},
		&model.TaskTypeGroup{},

		&model.TaskTarget{},
		&model.Supply{},
		&model.SupplyItem{},
		&model.Salary{},
		&model.WriteOff{},
		&model.CustomerOrder{},
		&model.CustomerPayment{},
		&model.SupplyOrder{},
		&model.SupplyPayment{},
		&model.DiscountGroup{},
		&model.Discount{},

		&model.Task{},
		&model.SubTask{},

		&model.ActorAccessLevel{},
		&model.RestaurantEmployeePositionAccessLevel{},
		&model.DefaultActorTaskDelegation{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
