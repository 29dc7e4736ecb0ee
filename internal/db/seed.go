package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo profiles and
// swipe activity.
//
// Behavior:
//  1. Clears every table.
//  2. Creates 20 users (10 male, 10 female) around San Francisco with hashed
//     passwords ("password"), interests and photos.
//  3. Generates swipes with ~70% likes; every third pair is forced mutual so
//     matches and conversations exist out of the box.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{"messages", "conversations", "matches", "swipes", "blocks", "reports", "refresh_tokens", "users"}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range tables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		for _, table := range tables {
			db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
		}
	}

	log.Println("Cleared existing data")

	interests := []string{"hiking", "cooking", "travel", "music", "yoga", "photography", "gaming", "reading", "climbing", "coffee"}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender, lookingFor := GenderMale, GenderFemale
		if i > 10 {
			gender, lookingFor = GenderFemale, GenderMale
		}

		picked := make([]string, 0, 3)
		for _, idx := range r.Perm(len(interests))[:3] {
			picked = append(picked, interests[idx])
		}

		// Scatter within roughly 30 miles of downtown San Francisco.
		lat := 37.7749 + (r.Float64()-0.5)*0.8
		lon := -122.4194 + (r.Float64()-0.5)*0.8

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Name:         fmt.Sprintf("User %d", i),
			Age:          21 + r.Intn(20),
			Gender:       gender,
			LookingFor:   lookingFor,
			Bio:          "Demo profile seeded for development.",
			Interests:    picked,
			Photos: []Photo{{
				ID:        fmt.Sprintf("seed-photo-%d", i),
				URL:       fmt.Sprintf("https://picsum.photos/seed/%d/400/600", i),
				IsPrimary: true,
			}},
			Location: &Location{
				City:        "San Francisco",
				Country:     "USA",
				Coordinates: &Coordinates{Latitude: lat, Longitude: lon},
			},
			DiscoveryEnabled:    true,
			IsVerified:          true,
			SuperLikesRemaining: 3,
			LastActive:          time.Now().Add(-time.Duration(r.Intn(72)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	log.Println("Seeded 20 users.")

	swiped := make(map[[2]uint64]bool)
	counter := 0
	matchCount := 0
	for _, actor := range users {
		for j := 0; j < 8; j++ {
			target := users[r.Intn(len(users))]
			if target.ID == actor.ID || target.Gender == actor.Gender {
				continue
			}
			if swiped[[2]uint64{actor.ID, target.ID}] {
				continue
			}

			kind := SwipePass
			if r.Intn(100) < 70 {
				kind = SwipeLike
			}
			// Force a mutual like on every third pair.
			mutual := counter%3 == 0
			if mutual {
				kind = SwipeLike
			}
			counter++

			if err := db.Create(&Swipe{SwiperID: actor.ID, SwipedID: target.ID, Type: kind}).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}
			swiped[[2]uint64{actor.ID, target.ID}] = true

			if !mutual || swiped[[2]uint64{target.ID, actor.ID}] {
				continue
			}
			if err := db.Create(&Swipe{SwiperID: target.ID, SwipedID: actor.ID, Type: SwipeLike}).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}
			swiped[[2]uint64{target.ID, actor.ID}] = true

			key := pairKey(actor.ID, target.ID)
			match := Match{
				User1ID:   actor.ID,
				User2ID:   target.ID,
				PairKey:   &key,
				MatchedAt: time.Now().Add(-time.Duration(r.Intn(48)) * time.Hour),
				IsActive:  true,
			}
			if err := db.Create(&match).Error; err != nil {
				// Pair already matched via an earlier iteration.
				continue
			}
			if err := db.Create(&Conversation{
				MatchID: match.ID,
				User1ID: actor.ID,
				User2ID: target.ID,
			}).Error; err != nil {
				return fmt.Errorf("failed to seed conversation: %w", err)
			}
			matchCount++
		}
	}
	log.Printf("Seeded %d swipes and %d matches.", counter, matchCount)

	return nil
}

// pairKey mirrors the repository's canonical "min:max" match key.
func pairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
