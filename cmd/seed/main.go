// Command main fills a development database with cats, comments and likes.
package main

import (
	"context"
	"flag"
	"log"

	"catspot/internal/bootstrap"
	"catspot/internal/config"
	"catspot/internal/seed"
)

func main() {
	profiles := flag.Int("profiles", 20, "Number of profiles to create")
	posts := flag.Int("posts", 120, "Number of posts to create")
	comments := flag.Int("comments", 6, "Maximum comments per post")
	likes := flag.Int("likes", 8, "Maximum likes per post and per comment")
	lat := flag.Float64("lat", 35.6812, "Latitude of the map centre")
	lng := flag.Float64("lng", 139.7671, "Longitude of the map centre")
	radius := flag.Float64("radius", 5, "Radius around the centre in km")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	clean := flag.Bool("clean", true, "Delete existing rows before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Seeding %d profiles and %d posts around (%.4f, %.4f), clean=%v", *profiles, *posts, *lat, *lng, *clean)

	_, err = bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{
		Seed: &seed.Options{
			Profiles:    *profiles,
			Posts:       *posts,
			MaxComments: *comments,
			MaxLikes:    *likes,
			CenterLat:   *lat,
			CenterLng:   *lng,
			RadiusKm:    *radius,
			Seed:        *seedValue,
			ShouldClean: *clean,
		},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. Sign in through the auth provider to see the demo timeline.")
}
