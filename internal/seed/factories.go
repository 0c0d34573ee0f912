// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math"
	"time"

	"catspot/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

const kmPerDegreeLat = 110.574

var captionTemplates = []string{
	"Spotted a %s napping by the %s.",
	"This %s guards the %s every morning.",
	"A very round %s near the %s.",
	"%s on patrol. Found by the %s.",
	"Shy %s hiding under a car at the %s.",
}

var landmarks = []string{
	"station", "shrine", "river bank", "convenience store", "park bench",
	"fish market", "bakery", "bus stop", "temple gate", "vending machine",
}

// Factory builds domain entities without persisting them. The same seed
// always yields the same sequence.
type Factory struct {
	faker *gofakeit.Faker
	opts  Options
	now   time.Time
}

// NewFactory creates a Factory. A zero opts.Seed picks a random seed.
func NewFactory(opts Options) *Factory {
	return &Factory{
		faker: gofakeit.New(opts.Seed),
		opts:  opts.withDefaults(),
		now:   time.Now().UTC(),
	}
}

// BuildProfile returns a profile with a fresh id. Roughly one in five
// profiles has no display name.
func (f *Factory) BuildProfile() models.Profile {
	p := models.Profile{ID: uuid.NewString()}
	if f.faker.Number(1, 5) > 1 {
		name := f.faker.FirstName()
		p.Name = &name
	}
	if f.faker.Bool() {
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", p.ID)
		p.AvatarURL = &avatar
	}
	return p
}

// BuildPost returns a post by author, located near the configured centre
// unless opts.LocatedRatio says otherwise.
func (f *Factory) BuildPost(author models.Profile) models.Post {
	caption := fmt.Sprintf(
		captionTemplates[f.faker.Number(0, len(captionTemplates)-1)],
		f.faker.Cat(),
		landmarks[f.faker.Number(0, len(landmarks)-1)],
	)
	post := models.Post{
		UserID:    author.ID,
		Caption:   caption,
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
		CreatedAt: f.pastTime(),
	}
	if f.faker.Float64Range(0, 1) < f.opts.LocatedRatio {
		lat, lng := f.Jitter(f.opts.CenterLat, f.opts.CenterLng, f.opts.RadiusKm)
		post.Latitude = &lat
		post.Longitude = &lng
	}
	return post
}

// BuildComment returns a comment on post by author, never older than the post.
func (f *Factory) BuildComment(post models.Post, author models.Profile) models.Comment {
	span := f.now.Sub(post.CreatedAt)
	if span <= 0 {
		span = time.Minute
	}
	offset := time.Duration(f.faker.Float64Range(0, 1) * float64(span))
	return models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   f.faker.Sentence(f.faker.Number(3, 12)),
		CreatedAt: post.CreatedAt.Add(offset),
	}
}

// Jitter returns a point within radiusKm of the centre.
func (f *Factory) Jitter(lat, lng, radiusKm float64) (float64, float64) {
	distance := radiusKm * math.Sqrt(f.faker.Float64Range(0, 1))
	bearing := f.faker.Float64Range(0, 2*math.Pi)

	dLat := distance * math.Cos(bearing) / kmPerDegreeLat
	kmPerDegreeLng := 111.320 * math.Cos(lat*math.Pi/180)
	dLng := 0.0
	if kmPerDegreeLng > 0 {
		dLng = distance * math.Sin(bearing) / kmPerDegreeLng
	}
	return lat + dLat, lng + dLng
}

// Pick returns up to n distinct indexes below size.
func (f *Factory) Pick(size, n int) []int {
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}
	return f.faker.Rand.Perm(size)[:n]
}

func (f *Factory) pastTime() time.Time {
	maxMinutes := f.opts.MaxDays * 24 * 60
	return f.now.Add(-time.Duration(f.faker.Number(1, maxMinutes)) * time.Minute)
}
