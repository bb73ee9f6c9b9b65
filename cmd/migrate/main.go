package main

import (
	"log"

	"roamly-chat/config"
	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/domain/trip"
	"roamly-chat/internal/domain/user"
	"roamly-chat/pkg/database"
)

// Applies the raw SQL migrations and GORM schema without starting the server.
func main() {
	cfg := config.LoadConfig()

	database.Connect(cfg)

	if err := database.DB.AutoMigrate(
		&user.Profile{},
		&trip.Trip{},
		&trip.TripParticipant{},
		&chat.Chat{},
		&chat.Participant{},
		&chat.Message{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	log.Println("Migrations applied")
}
