package seed

import (
	"context"
	"fmt"
	"log/slog"

	"catspot/internal/models"
	"catspot/internal/observability"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	Profiles     int
	Posts        int
	MaxComments  int     // per post
	MaxLikes     int     // per post and per comment
	LocatedRatio float64 // share of posts with coordinates
	CenterLat    float64
	CenterLng    float64
	RadiusKm     float64
	MaxDays      int
	BatchSize    int
	Seed         int64
	ShouldClean  bool
}

// withDefaults fills unset fields. The default centre is Tokyo Station.
func (o Options) withDefaults() Options {
	if o.Profiles <= 0 {
		o.Profiles = 12
	}
	if o.Posts < 0 {
		o.Posts = 0
	}
	if o.MaxComments < 0 {
		o.MaxComments = 0
	}
	if o.MaxLikes < 0 {
		o.MaxLikes = 0
	}
	if o.LocatedRatio <= 0 || o.LocatedRatio > 1 {
		o.LocatedRatio = 0.85
	}
	if o.CenterLat == 0 && o.CenterLng == 0 {
		o.CenterLat, o.CenterLng = 35.6812, 139.7671
	}
	if o.RadiusKm <= 0 {
		o.RadiusKm = 5
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 60
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	return o
}

// Summary counts the rows a run created.
type Summary struct {
	Profiles         int
	Posts            int
	Comments         int
	Favorites        int
	CommentFavorites int
}

// Seeder persists factory output.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder binds a seeder to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{db: db, opts: opts, factory: NewFactory(opts)}
}

// Run seeds profiles, posts and engagement in order.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	profiles, err := s.SeedProfiles(ctx, s.opts.Profiles)
	if err != nil {
		return sum, err
	}
	sum.Profiles = len(profiles)

	posts, err := s.SeedPosts(ctx, profiles, s.opts.Posts)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	eng, err := s.SeedEngagement(ctx, profiles, posts)
	if err != nil {
		return sum, err
	}
	sum.Comments = eng.Comments
	sum.Favorites = eng.Favorites
	sum.CommentFavorites = eng.CommentFavorites

	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		slog.Int("profiles", sum.Profiles),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("favorites", sum.Favorites),
		slog.Int("comment_favorites", sum.CommentFavorites),
	)
	return sum, nil
}

// ClearAll removes every row the seeder can create, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.CommentFavorite{},
		&models.Favorite{},
		&models.Comment{},
		&models.Post{},
		&models.Profile{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// SeedProfiles creates n profiles.
func (s *Seeder) SeedProfiles(ctx context.Context, n int) ([]models.Profile, error) {
	profiles := make([]models.Profile, n)
	for i := range profiles {
		profiles[i] = s.factory.BuildProfile()
	}
	if n == 0 {
		return profiles, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&profiles, s.opts.BatchSize).Error; err != nil {
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	return profiles, nil
}

// SeedPosts creates n posts by random authors.
func (s *Seeder) SeedPosts(ctx context.Context, authors []models.Profile, n int) ([]models.Post, error) {
	if len(authors) == 0 || n == 0 {
		return nil, nil
	}
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = s.factory.BuildPost(authors[s.factory.faker.Number(0, len(authors)-1)])
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&posts, s.opts.BatchSize).Error; err != nil {
		return nil, fmt.Errorf("seed posts: %w", err)
	}
	return posts, nil
}

// SeedEngagement adds comments and likes to posts. Each user likes a given
// post or comment at most once.
func (s *Seeder) SeedEngagement(ctx context.Context, users []models.Profile, posts []models.Post) (Summary, error) {
	var sum Summary
	if len(users) == 0 {
		return sum, nil
	}
	db := s.db.WithContext(ctx)

	var favorites []models.Favorite
	var comments []models.Comment
	for _, post := range posts {
		for _, idx := range s.factory.Pick(len(users), s.factory.faker.Number(0, s.opts.MaxLikes)) {
			favorites = append(favorites, models.Favorite{
				PostID:    post.ID,
				UserID:    users[idx].ID,
				CreatedAt: post.CreatedAt,
			})
		}
		for i := s.factory.faker.Number(0, s.opts.MaxComments); i > 0; i-- {
			author := users[s.factory.faker.Number(0, len(users)-1)]
			comments = append(comments, s.factory.BuildComment(post, author))
		}
	}

	if len(favorites) > 0 {
		if err := db.CreateInBatches(&favorites, s.opts.BatchSize).Error; err != nil {
			return sum, fmt.Errorf("seed favorites: %w", err)
		}
	}
	if len(comments) > 0 {
		if err := db.CreateInBatches(&comments, s.opts.BatchSize).Error; err != nil {
			return sum, fmt.Errorf("seed comments: %w", err)
		}
	}

	var commentFavorites []models.CommentFavorite
	for _, c := range comments {
		for _, idx := range s.factory.Pick(len(users), s.factory.faker.Number(0, s.opts.MaxLikes)) {
			commentFavorites = append(commentFavorites, models.CommentFavorite{
				CommentID: c.ID,
				UserID:    users[idx].ID,
				CreatedAt: c.CreatedAt,
			})
		}
	}
	if len(commentFavorites) > 0 {
		if err := db.CreateInBatches(&commentFavorites, s.opts.BatchSize).Error; err != nil {
			return sum, fmt.Errorf("seed comment favorites: %w", err)
		}
	}

	sum.Favorites = len(favorites)
	sum.Comments = len(comments)
	sum.CommentFavorites = len(commentFavorites)
	return sum, nil
}
