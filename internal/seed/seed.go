package seed

import (
	"fmt"
	"log"

	"quad/internal/models"

	"gorm.io/gorm"
)

// Distribution describes how many posts out of ten fall into each category.
type Distribution struct {
	General    int
	Academic   int
	Events     int
	Market     int
	Confession int
}

// defaultDistribution is the platform-wide mix used when a community has no
// override.
var defaultDistribution = Distribution{General: 4, Academic: 2, Events: 2, Market: 1, Confession: 1}

// CategoryDistributions overrides the post mix for specific community slugs.
var CategoryDistributions = map[string]Distribution{
	"study-hall":  {General: 1, Academic: 7, Events: 1, Market: 0, Confession: 1},
	"marketplace": {General: 1, Academic: 0, Events: 0, Market: 9, Confession: 0},
	"events":      {General: 1, Academic: 0, Events: 8, Market: 0, Confession: 1},
	"confessions": {General: 0, Academic: 0, Events: 0, Market: 0, Confession: 10},
}

// computeCounts splits total posts across categories per the distribution,
// assigning remainder from rounding to the general bucket.
func computeCounts(total int, d Distribution) (general, academic, events, market, confession int) {
	weightSum := d.General + d.Academic + d.Events + d.Market + d.Confession
	if weightSum == 0 {
		return total, 0, 0, 0, 0
	}
	academic = total * d.Academic / weightSum
	events = total * d.Events / weightSum
	market = total * d.Market / weightSum
	confession = total * d.Confession / weightSum
	general = total - academic - events - market - confession
	return general, academic, events, market, confession
}

func categoriesFor(total int, d Distribution) []string {
	general, academic, events, market, confession := computeCounts(total, d)
	out := make([]string, 0, total)
	appendN := func(category string, n int) {
		for i := 0; i < n; i++ {
			out = append(out, category)
		}
	}
	appendN(models.PostCategoryGeneral, general)
	appendN(models.PostCategoryAcademic, academic)
	appendN(models.PostCategoryEvents, events)
	appendN(models.PostCategoryMarket, market)
	appendN(models.PostCategoryConfession, confession)
	return out
}

// Seeder populates the database with realistic demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed populates the database with demo data per the options. It is the
// entrypoint used by the seed command.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	if err := Communities(db); err != nil {
		return fmt.Errorf("seed built-in communities: %w", err)
	}

	seeder := NewSeeder(db, opts)
	users, err := seeder.SeedSocialMesh(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seed social mesh: %w", err)
	}
	log.Printf("%d users seeded", len(users))

	if err := seeder.SeedCommunityPosts(users, opts.NumPosts); err != nil {
		return fmt.Errorf("seed community posts: %w", err)
	}

	log.Println("Database seeding completed")
	return nil
}

// SeedSocialMesh creates count users plus the relationships between them:
// community memberships, direct conversations with a few messages each, a
// sprinkling of donations, and interactions on each other's posts.
func (s *Seeder) SeedSocialMesh(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("failed to create seed user: %v", err)
			continue
		}
		users = append(users, user)
		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users could be created")
	}

	var communities []models.Community
	if err := s.db.Find(&communities).Error; err != nil {
		return nil, err
	}

	// Every user joins every community; real membership skew comes from the
	// posting distribution, not from membership itself.
	for _, user := range users {
		for i := range communities {
			if err := s.factory.JoinCommunity(user, &communities[i], models.CommunityRoleMember); err != nil {
				return nil, err
			}
		}
	}

	// Pair neighbours into DM threads.
	for i := 0; i+1 < len(users); i += 2 {
		conv, err := s.factory.CreateConversation(users[i], users[i+1])
		if err != nil {
			return nil, err
		}
		for m := 0; m < 4; m++ {
			sender := users[i]
			if m%2 == 1 {
				sender = users[i+1]
			}
			if _, err := s.factory.CreateMessage(conv, sender); err != nil {
				return nil, err
			}
		}
	}

	// Roughly a quarter of users have donated.
	for i, user := range users {
		if i%4 != 0 {
			continue
		}
		if _, err := s.factory.CreateDonation(user); err != nil {
			return nil, err
		}
	}

	return users, nil
}

// SeedCommunityPosts spreads count posts across communities following each
// community's category distribution, then layers comments and interactions
// on top.
func (s *Seeder) SeedCommunityPosts(users []*models.User, count int) error {
	if len(users) == 0 || count == 0 {
		return nil
	}

	var communities []models.Community
	if err := s.db.Find(&communities).Error; err != nil {
		return err
	}
	if len(communities) == 0 {
		return fmt.Errorf("no communities to post into; run Communities first")
	}

	perCommunity := count / len(communities)
	if perCommunity == 0 {
		perCommunity = 1
	}

	var allPosts []*models.Post
	for ci := range communities {
		community := &communities[ci]
		dist, ok := CategoryDistributions[community.Slug]
		if !ok {
			dist = defaultDistribution
		}

		batch := make([]*models.Post, 0, perCommunity)
		for _, category := range categoriesFor(perCommunity, dist) {
			author := users[s.factory.rng.Intn(len(users))]
			post := s.factory.BuildPost(author, category, func(p *models.Post) {
				p.CommunityID = &community.ID
			})
			batch = append(batch, post)
		}
		if err := s.factory.CreatePostsBatch(batch); err != nil {
			return err
		}
		allPosts = append(allPosts, batch...)
	}
	log.Printf("%d posts created", len(allPosts))

	if s.opts.DryRun {
		return nil
	}

	// Interactions: each post gets a handful of likes and the occasional
	// comment, repost, or bookmark from distinct users.
	for _, post := range allPosts {
		n := s.factory.rng.Intn(5)
		for i := 0; i < n && i < len(users); i++ {
			user := users[(int(post.ID)+i)%len(users)]
			if user.ID == post.UserID {
				continue
			}
			if err := s.factory.CreateLike(user, post); err != nil {
				return err
			}
			switch i {
			case 0:
				if _, err := s.factory.CreateComment(user, post); err != nil {
					return err
				}
			case 1:
				if err := s.factory.CreateRepost(user, post); err != nil {
					return err
				}
			case 2:
				if err := s.factory.CreateBookmark(user, post); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE post_likes, reposts, bookmarks, comments, posts,
		community_invitations, community_members, communities,
		conversation_participants, messages, conversations,
		notifications, donations, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}
