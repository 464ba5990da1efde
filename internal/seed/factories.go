// Package seed provides helpers to create demo and test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"quad/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder and its factory.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool

	// SkipBcrypt stores a plaintext placeholder password. Much faster for
	// large seed runs in local development.
	SkipBcrypt bool
	// DryRun builds entities with synthetic IDs without touching the DB.
	DryRun bool
	// BatchSize controls insert chunking for large runs.
	BatchSize int
	// MaxDays spreads generated created_at timestamps over this many days.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Factory{db: db, opts: opts, rng: rng, nextID: 1000}
}

// CreateUser constructs and persists a sample models.User.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	gradYear := time.Now().Year() + f.rng.Intn(5)
	user := &models.User{
		Username:    fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Bio:         gofakeit.Sentence(10),
		Major:       gofakeit.JobTitle(),
		GradYear:    gradYear,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Username, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post in the given category without persisting it.
// Useful for batching.
func (f *Factory) BuildPost(user *models.User, category string, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Content:  gofakeit.Paragraph(1, 3, 5, "\n"),
		UserID:   user.ID,
		Category: category,
	}

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	switch category {
	case models.PostCategoryConfession:
		post.IsAnonymous = true
		post.AnonymousName = fmt.Sprintf("%s %s", gofakeit.AdjectiveDescriptive(), gofakeit.Animal())
	case models.PostCategoryEvents:
		post.Content = fmt.Sprintf("%s\n\nWhen: %s\nWhere: %s",
			post.Content, gofakeit.FutureDate().Format("Mon Jan 2, 3pm"), gofakeit.Street())
	case models.PostCategoryMarket:
		post.Content = fmt.Sprintf("Selling: %s. %s Asking $%d obo.",
			gofakeit.ProductName(), gofakeit.Sentence(6), gofakeit.Number(5, 400))
	}

	// a chunk of posts carry an image
	if f.rng.Float32() < 0.35 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample models.Post for the given user.
func (f *Factory) CreatePost(user *models.User, category string, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, category, overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: category=%s user=%d", post.Category, post.UserID)
		return post, nil
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in chunked inserts.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	batchSize := f.opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return f.db.CreateInBatches(&posts, batchSize).Error
}

// CreateComment constructs and persists a comment on the provided post
// authored by the provided user.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content: gofakeit.Sentence(8),
		UserID:  user.ID,
		PostID:  post.ID,
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.PostLike{UserID: user.ID, PostID: post.ID}).Error
}

// CreateRepost persists a repost from user on post.
func (f *Factory) CreateRepost(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Repost{UserID: user.ID, PostID: post.ID}).Error
}

// CreateBookmark persists a bookmark from user on post.
func (f *Factory) CreateBookmark(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Bookmark{UserID: user.ID, PostID: post.ID}).Error
}

// JoinCommunity persists a membership row for user in community.
func (f *Factory) JoinCommunity(user *models.User, community *models.Community, role models.CommunityRole) error {
	member := &models.CommunityMember{
		CommunityID: community.ID,
		UserID:      user.ID,
		Role:        role,
	}
	return f.db.Create(member).Error
}

// CreateConversation persists a direct conversation between two users.
func (f *Factory) CreateConversation(a, b *models.User) (*models.Conversation, error) {
	conv := &models.Conversation{DirectKey: models.DirectConversationKey(a.ID, b.ID)}
	if err := f.db.Create(conv).Error; err != nil {
		return nil, err
	}
	participants := []models.ConversationParticipant{
		{ConversationID: conv.ID, UserID: a.ID},
		{ConversationID: conv.ID, UserID: b.ID},
	}
	if err := f.db.Create(&participants).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateMessage constructs and persists a message in the provided
// conversation from the provided sender.
func (f *Factory) CreateMessage(conversation *models.Conversation, sender *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       sender.ID,
		Content:        gofakeit.Sentence(10),
	}

	for _, override := range overrides {
		override(message)
	}

	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// CreateDonation persists a donation from the given user.
func (f *Factory) CreateDonation(user *models.User, overrides ...func(*models.Donation)) (*models.Donation, error) {
	donation := &models.Donation{
		UserID:      user.ID,
		AmountCents: int64(gofakeit.Number(5, 200)) * 100,
		Currency:    "USD",
		Message:     gofakeit.Sentence(6),
		IsAnonymous: f.rng.Float32() < 0.3,
	}

	for _, override := range overrides {
		override(donation)
	}

	if err := f.db.Create(donation).Error; err != nil {
		return nil, err
	}
	return donation, nil
}
